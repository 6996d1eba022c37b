package backend

import "fmt"

// notAvailableError signals that the backend executable or model is missing.
type notAvailableError struct {
	what string
	path string
}

func (e notAvailableError) Error() string { return fmt.Sprintf("backend %s not available: %s", e.what, e.path) }

// ErrNotAvailable constructs a notAvailableError.
func ErrNotAvailable(what, path string) error { return notAvailableError{what: what, path: path} }

// IsNotAvailable reports whether err indicates a missing executable or model.
func IsNotAvailable(err error) bool {
	_, ok := err.(notAvailableError)
	return ok
}
