package mock

import "fmt"

// DuplicateMockError reports a mock name declared more than once in a file.
// It is fatal to the file.
type DuplicateMockError struct {
	Name string
	Line int
}

func (e *DuplicateMockError) Error() string {
	return fmt.Sprintf("mock %q declared more than once (line %d)", e.Name, e.Line)
}

// UnknownMockError reports a reference to a mock that was never declared,
// either from a test's given clause or from a template variable.
type UnknownMockError struct {
	Name string
}

func (e *UnknownMockError) Error() string {
	return fmt.Sprintf("unknown mock %q: no matching declaration", e.Name)
}

// TypeMismatchError reports an override that violates the declared kind.
// It is fatal to the one test case.
type TypeMismatchError struct {
	Mock     string
	Expected Kind
	Value    any
	Detail   string
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("mock %q: override %v does not match declared kind %s", e.Mock, e.Value, e.Expected)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
