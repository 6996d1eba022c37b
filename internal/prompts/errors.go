package prompts

import "fmt"

type notFoundError struct{ name string }

func (e notFoundError) Error() string { return fmt.Sprintf("Prompt template %s not found", e.name) }

type invalidNameError struct{ name string }

func (e invalidNameError) Error() string { return fmt.Sprintf("invalid prompt name %q", e.name) }

// IsNotFound reports whether err means the template does not exist.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// IsInvalidName reports whether err means the name is not a bare file stem.
func IsInvalidName(err error) bool {
	_, ok := err.(invalidNameError)
	return ok
}
