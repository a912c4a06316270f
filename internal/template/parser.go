package template

import (
	"strings"
)

// Parser builds a template AST from lexer tokens, pairing control flow
// statements into ForBlock and IfBlock nodes.
type Parser struct {
	tokens []Token
	pos    int
	file   string
}

// Parse tokenizes and parses input into a Template.
func Parse(input, file string) (*Template, error) {
	tokens, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens, file: file}
	nodes, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	return &Template{Nodes: nodes, File: file}, nil
}

// parseNodes consumes tokens until EOF or one of the terminator statement
// kinds. The terminating StmtNode is left for the caller to inspect.
func (p *Parser) parseNodes(terminators []StmtKind) ([]Node, error) {
	var nodes []Node
	for {
		tok := p.peek()
		switch tok.Type {
		case TokenEOF:
			return nodes, nil
		case TokenText:
			p.next()
			nodes = append(nodes, &TextNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Value})
		case TokenExpr:
			p.next()
			if tok.Value == "" {
				return nil, NewParseError(tok.Pos, "empty expression")
			}
			nodes = append(nodes, &ExprNode{nodeBase: nodeBase{pos: tok.Pos}, Expr: tok.Value})
		case TokenStmt:
			stmt, err := parseStmt(tok)
			if err != nil {
				return nil, err
			}
			if containsKind(terminators, stmt.Kind) {
				return nodes, nil
			}
			switch stmt.Kind {
			case StmtFor:
				p.next()
				block, err := p.parseForBlock(stmt)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, block)
			case StmtIf:
				p.next()
				block, err := p.parseIfBlock(stmt)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, block)
			default:
				return nil, NewUnmatchedBlockError(tok.Pos, stmt.Kind)
			}
		default:
			return nil, NewParseErrorf(tok.Pos, "unexpected token %s", tok.Type)
		}
	}
}

// parseForBlock parses the body of a for loop after its opening statement.
func (p *Parser) parseForBlock(open *StmtNode) (*ForBlock, error) {
	body, err := p.parseNodes([]StmtKind{StmtEndFor})
	if err != nil {
		return nil, err
	}
	if err := p.expectStmt(StmtEndFor, open); err != nil {
		return nil, err
	}
	return &ForBlock{
		nodeBase: nodeBase{pos: open.Pos()},
		VarNames: open.VarNames,
		IterExpr: open.Expr,
		Body:     body,
	}, nil
}

// parseIfBlock parses if/elif/else branches after the opening if statement.
func (p *Parser) parseIfBlock(open *StmtNode) (*IfBlock, error) {
	block := &IfBlock{nodeBase: nodeBase{pos: open.Pos()}, Condition: open.Expr}

	body, err := p.parseNodes([]StmtKind{StmtElif, StmtElse, StmtEndIf})
	if err != nil {
		return nil, err
	}
	block.Body = body

	for {
		tok := p.peek()
		if tok.Type != TokenStmt {
			return nil, NewUnmatchedBlockError(open.Pos(), StmtIf)
		}
		stmt, err := parseStmt(tok)
		if err != nil {
			return nil, err
		}
		p.next()
		switch stmt.Kind {
		case StmtElif:
			branchBody, err := p.parseNodes([]StmtKind{StmtElif, StmtElse, StmtEndIf})
			if err != nil {
				return nil, err
			}
			block.ElseIfs = append(block.ElseIfs, Branch{
				Condition: stmt.Expr,
				Body:      branchBody,
				pos:       stmt.Pos(),
			})
		case StmtElse:
			elseBody, err := p.parseNodes([]StmtKind{StmtEndIf})
			if err != nil {
				return nil, err
			}
			block.Else = elseBody
			if err := p.expectStmt(StmtEndIf, open); err != nil {
				return nil, err
			}
			return block, nil
		case StmtEndIf:
			return block, nil
		default:
			return nil, NewUnmatchedBlockError(stmt.Pos(), stmt.Kind)
		}
	}
}

// expectStmt consumes the next token, which must be the given statement kind.
func (p *Parser) expectStmt(kind StmtKind, open *StmtNode) error {
	tok := p.peek()
	if tok.Type != TokenStmt {
		blockKind := StmtIf
		if kind == StmtEndFor {
			blockKind = StmtFor
		}
		return NewUnmatchedBlockError(open.Pos(), blockKind)
	}
	stmt, err := parseStmt(tok)
	if err != nil {
		return err
	}
	if stmt.Kind != kind {
		return NewUnmatchedBlockError(tok.Pos, stmt.Kind)
	}
	p.next()
	return nil
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() Token {
	tok := p.peek()
	p.pos++
	return tok
}

// parseStmt classifies a statement token's content.
// A trailing colon is accepted on block openers for Starlark familiarity.
func parseStmt(tok Token) (*StmtNode, error) {
	content := strings.TrimSuffix(strings.TrimSpace(tok.Value), ":")
	stmt := &StmtNode{nodeBase: nodeBase{pos: tok.Pos}}

	switch {
	case content == "endfor":
		stmt.Kind = StmtEndFor
	case content == "endif":
		stmt.Kind = StmtEndIf
	case content == "else":
		stmt.Kind = StmtElse
	case strings.HasPrefix(content, "for "):
		rest := strings.TrimSpace(strings.TrimPrefix(content, "for "))
		varsPart, iterExpr, found := strings.Cut(rest, " in ")
		if !found {
			return nil, NewParseErrorf(tok.Pos, "invalid for statement %q: missing 'in'", tok.Value)
		}
		var names []string
		for _, v := range strings.Split(varsPart, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, NewParseErrorf(tok.Pos, "invalid for statement %q: empty loop variable", tok.Value)
			}
			names = append(names, v)
		}
		iterExpr = strings.TrimSpace(iterExpr)
		if iterExpr == "" {
			return nil, NewParseErrorf(tok.Pos, "invalid for statement %q: empty iterator", tok.Value)
		}
		stmt.Kind = StmtFor
		stmt.VarNames = names
		stmt.Expr = iterExpr
	case strings.HasPrefix(content, "if "):
		cond := strings.TrimSpace(strings.TrimPrefix(content, "if "))
		if cond == "" {
			return nil, NewParseErrorf(tok.Pos, "invalid if statement %q: empty condition", tok.Value)
		}
		stmt.Kind = StmtIf
		stmt.Expr = cond
	case strings.HasPrefix(content, "elif "):
		cond := strings.TrimSpace(strings.TrimPrefix(content, "elif "))
		if cond == "" {
			return nil, NewParseErrorf(tok.Pos, "invalid elif statement %q: empty condition", tok.Value)
		}
		stmt.Kind = StmtElif
		stmt.Expr = cond
	default:
		return nil, NewParseErrorf(tok.Pos, "unknown statement %q", tok.Value)
	}
	return stmt, nil
}

func containsKind(kinds []StmtKind, k StmtKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
