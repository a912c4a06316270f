package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
)

// ExecutionContext provides the globals for one template rendering: the
// resolved mock bindings, converted to Starlark values.
type ExecutionContext struct {
	globals starlark.StringDict
	pool    *ThreadPool
}

// NewExecutionContext builds a context exposing every binding as a global.
func NewExecutionContext(bindings map[string]any) (*ExecutionContext, error) {
	globals := make(starlark.StringDict, len(bindings))
	for name, value := range bindings {
		sv, err := GoToStarlark(value)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", name, err)
		}
		globals[name] = sv
	}
	return &ExecutionContext{globals: globals, pool: NewThreadPool(0)}, nil
}

// Globals returns the globals dictionary for Starlark execution.
func (ctx *ExecutionContext) Globals() starlark.StringDict {
	return ctx.globals
}

// Has reports whether name is bound in the context.
func (ctx *ExecutionContext) Has(name string) bool {
	_, ok := ctx.globals[name]
	return ok
}

// EvalExpr evaluates a single Starlark expression.
// This is used for {{ expr }} template expressions.
func (ctx *ExecutionContext) EvalExpr(expr string, filename string, line int) (starlark.Value, error) {
	return ctx.EvalExprWithLocals(expr, filename, line, nil)
}

// EvalExprWithLocals evaluates an expression with additional local variables,
// used inside loops where loop variables need to be in scope.
func (ctx *ExecutionContext) EvalExprWithLocals(expr string, filename string, line int, locals starlark.StringDict) (starlark.Value, error) {
	thread := ctx.pool.Get(filename)
	defer ctx.pool.Put(thread)

	globals := ctx.globals
	if len(locals) > 0 {
		combined := make(starlark.StringDict, len(globals)+len(locals))
		for k, v := range globals {
			combined[k] = v
		}
		for k, v := range locals {
			combined[k] = v
		}
		globals = combined
	}

	value, err := starlark.Eval(thread, filename, expr, globals)
	if err != nil {
		return nil, fmt.Errorf("%s:%d: %w", filename, line, err)
	}
	return value, nil
}
