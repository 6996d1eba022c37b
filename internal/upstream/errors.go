package upstream

import (
	"errors"
	"fmt"
)

// requestError means the backend could not be reached or the exchange broke.
type requestError struct{ err error }

func (e requestError) Error() string { return fmt.Sprintf("Upstream request error: %v", e.err) }
func (e requestError) Unwrap() error { return e.err }

// statusError means the backend answered with a non-2xx status.
type statusError struct {
	status int
	body   string
}

func (e statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("Upstream server error: status %d", e.status)
	}
	return fmt.Sprintf("Upstream server error: %s", e.body)
}

// IsRequestError reports whether err is a transport-level failure.
func IsRequestError(err error) bool {
	var e requestError
	return errors.As(err, &e)
}

// IsStatusError reports whether err is an upstream non-2xx response.
func IsStatusError(err error) bool {
	var e statusError
	return errors.As(err, &e)
}

// StatusOf returns the upstream status of a status error, or 0.
func StatusOf(err error) int {
	var e statusError
	if errors.As(err, &e) {
		return e.status
	}
	return 0
}
