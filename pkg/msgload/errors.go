package msgload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := runner.Run(ctx, cfg)
//	if errors.Is(err, msgload.ErrSchemaMismatch) {
//	    // a categories row disagrees with the first row
//	}
var (
	// ErrUsage indicates the command line was invoked incorrectly.
	ErrUsage = errors.New("usage error")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInputUnreadable indicates an input file could not be opened.
	ErrInputUnreadable = errors.New("input not readable")

	// ErrMissingColumn indicates an input file lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrMalformedRow indicates a row could not be parsed.
	ErrMalformedRow = errors.New("malformed row")

	// ErrSchemaMismatch indicates a row's categories disagree with the category schema,
	// or two input columns map to the same output column.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrEmptyJoin indicates no identifier is present in both inputs.
	ErrEmptyJoin = errors.New("join produced no rows")

	// ErrConnectionFailed indicates the destination store could not be opened.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrWriteFailed indicates the destination table could not be written.
	ErrWriteFailed = errors.New("write failed")
)

// RowError describes a problem with a single input row.
// It unwraps to its sentinel (ErrMalformedRow or ErrSchemaMismatch).
type RowError struct {
	Source string // input file the row came from
	Line   int    // 1-based line number, header is line 1
	ID     string // identifier of the row, if known
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " (id %s)", e.ID)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *RowError) Unwrap() error { return e.Err }

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrInputUnreadable),
		errors.Is(err, ErrMissingColumn),
		errors.Is(err, ErrMalformedRow),
		errors.Is(err, ErrSchemaMismatch),
		errors.Is(err, ErrEmptyJoin):
		return ExitInputError
	case errors.Is(err, ErrWriteFailed):
		return ExitWriteError
	}

	// cobra reports flag and argument problems as plain errors
	errStr := err.Error()
	for _, pattern := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"required flag",
		"invalid argument",
		"flag needs an argument",
	} {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	return ExitGeneralError
}
