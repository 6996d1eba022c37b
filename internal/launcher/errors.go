package launcher

import (
	"errors"
	"fmt"
)

// missingExecutableError aborts the launch under the strict policy.
type missingExecutableError struct {
	path       string
	candidates int
}

func (e missingExecutableError) Error() string {
	return fmt.Sprintf("llama-server executable not found at %s (%d candidate(s) found elsewhere)", e.path, e.candidates)
}

// IsMissingExecutable reports whether err aborted the launch because the
// backend executable is missing.
func IsMissingExecutable(err error) bool {
	var e missingExecutableError
	return errors.As(err, &e)
}

// handoffError wraps a failed process replacement.
type handoffError struct {
	path string
	err  error
}

func (e handoffError) Error() string { return fmt.Sprintf("exec gateway %s: %v", e.path, e.err) }
func (e handoffError) Unwrap() error { return e.err }

// IsHandoffFailed reports whether err came from a failed gateway exec.
func IsHandoffFailed(err error) bool {
	var e handoffError
	return errors.As(err, &e)
}
