// Package main provides the propdash CLI: it manages the property
// collection, uploads media, moves rows in and out of JSONL files and
// serves the dashboard API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "propdash:", err)
		os.Exit(exitCode(err))
	}
}

// usageError marks an error caused by the invocation rather than the system.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// exitCode maps err to exitUserError for bad input and missing entities,
// and to exitSysError for everything else.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidCounter):
		return exitUserError
	default:
		return exitSysError
	}
}
