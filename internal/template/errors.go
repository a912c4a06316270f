package template

import "fmt"

// Error is implemented by every error this package returns, so callers
// can recover the source position regardless of which phase failed.
type Error interface {
	error
	Position() Position
}

type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }

func (e *baseError) Error() string {
	if e.pos.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
}

// LexError reports malformed delimiter syntax found while tokenizing.
type LexError struct {
	baseError
}

func NewLexError(pos Position, msg string) *LexError {
	return &LexError{baseError: baseError{pos: pos, msg: msg}}
}

// ParseError reports a token stream that does not form a valid template.
type ParseError struct {
	baseError
}

func NewParseError(pos Position, msg string) *ParseError {
	return &ParseError{baseError: baseError{pos: pos, msg: msg}}
}

func NewParseErrorf(pos Position, format string, args ...any) *ParseError {
	return NewParseError(pos, fmt.Sprintf(format, args...))
}

// RenderError reports a failure while evaluating a parsed template,
// optionally carrying the underlying evaluation error as its Cause.
type RenderError struct {
	baseError
	Cause error
}

func (e *RenderError) Error() string {
	if e.Cause == nil {
		return e.baseError.Error()
	}
	return fmt.Sprintf("%s: %v", e.baseError.Error(), e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

func NewRenderErrorf(pos Position, format string, args ...any) *RenderError {
	return &RenderError{baseError: baseError{pos: pos, msg: fmt.Sprintf(format, args...)}}
}

// WrapRenderError attaches a position and context message to an
// evaluation error.
func WrapRenderError(pos Position, msg string, cause error) *RenderError {
	return &RenderError{baseError: baseError{pos: pos, msg: msg}, Cause: cause}
}

// UnmatchedBlockError reports a block statement whose counterpart is
// missing, on either side: an unclosed opener or a stray closer.
type UnmatchedBlockError struct {
	baseError
	BlockKind StmtKind
}

var unmatchedMessages = map[StmtKind]string{
	StmtFor:    "'for' block is never closed with 'endfor'",
	StmtIf:     "'if' block is never closed with 'endif'",
	StmtEndFor: "'endfor' has no matching 'for'",
	StmtEndIf:  "'endif' has no matching 'if'",
	StmtElse:   "'else' has no matching 'if'",
	StmtElif:   "'elif' has no matching 'if'",
}

func NewUnmatchedBlockError(pos Position, kind StmtKind) *UnmatchedBlockError {
	msg, ok := unmatchedMessages[kind]
	if !ok {
		msg = fmt.Sprintf("unmatched block statement: %s", kind)
	}
	return &UnmatchedBlockError{
		baseError: baseError{pos: pos, msg: msg},
		BlockKind: kind,
	}
}
