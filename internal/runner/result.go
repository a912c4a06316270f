package runner

import (
	"fmt"
	"time"
)

// Status classifies the outcome of a single test case.
type Status string

const (
	// StatusPass means the query ran and its result matched the expectation.
	StatusPass Status = "pass"
	// StatusFail means the query ran but its result diverged.
	StatusFail Status = "fail"
	// StatusError means the case never produced a comparable result
	// (resolution, render or execution failed).
	StatusError Status = "error"
	// StatusSkip means the case was filtered out or its file is disabled.
	StatusSkip Status = "skip"
)

// CaseResult is the outcome of one declared test case.
type CaseResult struct {
	Name     string
	File     string
	Line     int
	Status   Status
	Err      error
	Duration time.Duration
	// Query is the final composed SQL sent to the engine, kept for
	// failure reporting and the render command.
	Query string
}

// FileResult groups the case results of one SQL file. Err is set when the
// file itself could not be processed (extraction or declaration errors), in
// which case Cases is empty.
type FileResult struct {
	File  string
	Err   error
	Cases []CaseResult
}

// Summary aggregates a whole run.
type Summary struct {
	Files    []FileResult
	Duration time.Duration
}

// Counts returns pass/fail/error/skip totals across all files. File-level
// errors count as one error each.
func (s *Summary) Counts() (passed, failed, errored, skipped int) {
	for _, f := range s.Files {
		if f.Err != nil {
			errored++
			continue
		}
		for _, c := range f.Cases {
			switch c.Status {
			case StatusPass:
				passed++
			case StatusFail:
				failed++
			case StatusError:
				errored++
			case StatusSkip:
				skipped++
			}
		}
	}
	return
}

// OK reports whether the run had no failures and no errors.
func (s *Summary) OK() bool {
	_, failed, errored, _ := s.Counts()
	return failed == 0 && errored == 0
}

// QueryExecutionError wraps an engine error together with the SQL that
// triggered it, so failure output can show what was actually executed.
type QueryExecutionError struct {
	Query string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// UnboundVariableError reports a template variable with no declared mock.
type UnboundVariableError struct {
	File     string
	Variable string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("%s: template references %q but no mock declares it", e.File, e.Variable)
}
