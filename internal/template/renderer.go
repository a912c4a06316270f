package template

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	starctx "github.com/leapstack-labs/sqlunit/internal/starlark"
)

// Renderer is the injected rendering capability the harness depends on.
// Implementations expand template text using the resolved bindings and are
// otherwise opaque to the rest of the pipeline.
type Renderer interface {
	Render(text, file string, bindings map[string]any) (string, error)
}

// StarlarkRenderer renders templates by evaluating {{ expr }} expressions
// and {% %} control flow with Starlark over the binding globals.
type StarlarkRenderer struct{}

// NewStarlarkRenderer returns the default renderer implementation.
func NewStarlarkRenderer() *StarlarkRenderer {
	return &StarlarkRenderer{}
}

// Render parses and renders text with the given bindings as globals.
func (r *StarlarkRenderer) Render(text, file string, bindings map[string]any) (string, error) {
	ctx, err := starctx.NewExecutionContext(bindings)
	if err != nil {
		return "", err
	}
	return RenderString(text, file, ctx)
}

// Variables parses text and returns every top-level identifier referenced by
// its expressions and statements. Used to validate that all template
// variables resolve to declared mocks.
func (r *StarlarkRenderer) Variables(text, file string) ([]string, error) {
	tmpl, err := Parse(text, file)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	var walk func(nodes []Node, locals map[string]bool)
	walk = func(nodes []Node, locals map[string]bool) {
		for _, node := range nodes {
			switch n := node.(type) {
			case *ExprNode:
				for _, id := range exprIdentifiers(n.Expr) {
					if !locals[id] && !seen[id] {
						seen[id] = true
						names = append(names, id)
					}
				}
			case *ForBlock:
				for _, id := range exprIdentifiers(n.IterExpr) {
					if !locals[id] && !seen[id] {
						seen[id] = true
						names = append(names, id)
					}
				}
				inner := make(map[string]bool, len(locals)+len(n.VarNames))
				for k := range locals {
					inner[k] = true
				}
				for _, v := range n.VarNames {
					inner[v] = true
				}
				walk(n.Body, inner)
			case *IfBlock:
				for _, id := range exprIdentifiers(n.Condition) {
					if !locals[id] && !seen[id] {
						seen[id] = true
						names = append(names, id)
					}
				}
				walk(n.Body, locals)
				for _, br := range n.ElseIfs {
					for _, id := range exprIdentifiers(br.Condition) {
						if !locals[id] && !seen[id] {
							seen[id] = true
							names = append(names, id)
						}
					}
					walk(br.Body, locals)
				}
				walk(n.Else, locals)
			}
		}
	}
	walk(tmpl.Nodes, map[string]bool{})
	return names, nil
}

// RenderString parses and renders a template string against an execution
// context. file is used in error positions.
func RenderString(input, file string, ctx *starctx.ExecutionContext) (string, error) {
	tmpl, err := Parse(input, file)
	if err != nil {
		return "", err
	}
	return RenderTemplate(tmpl, ctx)
}

// RenderTemplate renders a parsed template against an execution context.
func RenderTemplate(tmpl *Template, ctx *starctx.ExecutionContext) (string, error) {
	var b strings.Builder
	if err := renderNodes(&b, tmpl.Nodes, tmpl.File, ctx, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderNodes(b *strings.Builder, nodes []Node, file string, ctx *starctx.ExecutionContext, locals starlark.StringDict) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case *TextNode:
			b.WriteString(n.Text)
		case *ExprNode:
			value, err := ctx.EvalExprWithLocals(n.Expr, file, n.Pos().Line, locals)
			if err != nil {
				return WrapRenderError(n.Pos(), "expression evaluation failed", err)
			}
			b.WriteString(valueToString(value))
		case *ForBlock:
			if err := renderFor(b, n, file, ctx, locals); err != nil {
				return err
			}
		case *IfBlock:
			if err := renderIf(b, n, file, ctx, locals); err != nil {
				return err
			}
		default:
			return NewRenderErrorf(node.Pos(), "unexpected node type %T", node)
		}
	}
	return nil
}

func renderFor(b *strings.Builder, block *ForBlock, file string, ctx *starctx.ExecutionContext, locals starlark.StringDict) error {
	iterValue, err := ctx.EvalExprWithLocals(block.IterExpr, file, block.Pos().Line, locals)
	if err != nil {
		return WrapRenderError(block.Pos(), "iterator evaluation failed", err)
	}
	iterable, ok := iterValue.(starlark.Iterable)
	if !ok {
		return NewRenderErrorf(block.Pos(), "cannot iterate over %s", iterValue.Type())
	}

	it := iterable.Iterate()
	defer it.Done()

	var item starlark.Value
	for it.Next(&item) {
		inner := make(starlark.StringDict, len(locals)+len(block.VarNames))
		for k, v := range locals {
			inner[k] = v
		}
		if err := bindLoopVars(inner, block, item); err != nil {
			return err
		}
		if err := renderNodes(b, block.Body, file, ctx, inner); err != nil {
			return err
		}
	}
	return nil
}

// bindLoopVars assigns the iteration item to the loop variables, unpacking
// tuples when multiple variables are declared.
func bindLoopVars(locals starlark.StringDict, block *ForBlock, item starlark.Value) error {
	if len(block.VarNames) == 1 {
		locals[block.VarNames[0]] = item
		return nil
	}
	seq, ok := item.(starlark.Indexable)
	if !ok {
		return NewRenderErrorf(block.Pos(), "cannot unpack %s into %d variables", item.Type(), len(block.VarNames))
	}
	if seq.Len() != len(block.VarNames) {
		return NewRenderErrorf(block.Pos(), "cannot unpack %d values into %d variables", seq.Len(), len(block.VarNames))
	}
	for i, name := range block.VarNames {
		locals[name] = seq.Index(i)
	}
	return nil
}

func renderIf(b *strings.Builder, block *IfBlock, file string, ctx *starctx.ExecutionContext, locals starlark.StringDict) error {
	cond, err := ctx.EvalExprWithLocals(block.Condition, file, block.Pos().Line, locals)
	if err != nil {
		return WrapRenderError(block.Pos(), "condition evaluation failed", err)
	}
	if bool(cond.Truth()) {
		return renderNodes(b, block.Body, file, ctx, locals)
	}
	for _, branch := range block.ElseIfs {
		cond, err := ctx.EvalExprWithLocals(branch.Condition, file, branch.pos.Line, locals)
		if err != nil {
			return WrapRenderError(branch.pos, "condition evaluation failed", err)
		}
		if bool(cond.Truth()) {
			return renderNodes(b, branch.Body, file, ctx, locals)
		}
	}
	if block.Else != nil {
		return renderNodes(b, block.Else, file, ctx, locals)
	}
	return nil
}

// valueToString converts an evaluated expression into SQL text.
// Strings render without quotes so templates control their own quoting.
func valueToString(v starlark.Value) string {
	switch val := v.(type) {
	case starlark.String:
		return string(val)
	case starlark.NoneType:
		return ""
	case starlark.Float:
		return fmt.Sprintf("%v", float64(val))
	default:
		return v.String()
	}
}

// exprIdentifiers extracts the top-level identifiers referenced by a
// Starlark expression. Attribute accesses count their base only.
func exprIdentifiers(expr string) []string {
	var names []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == '"' || c == '\'':
			// Skip string literals.
			quote := c
			i++
			for i < len(expr) && expr[i] != quote {
				if expr[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case isIdentStart(c):
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			name := expr[start:i]
			// Skip attribute/method names and keywords.
			prevDot := start > 0 && expr[start-1] == '.'
			if !prevDot && !isKeyword(name) {
				names = append(names, name)
			}
		default:
			i++
		}
	}
	return names
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "in", "if", "else", "for", "lambda",
		"True", "False", "None", "len", "str", "int", "float", "bool",
		"range", "sorted", "enumerate", "zip", "min", "max", "abs":
		return true
	}
	return false
}
