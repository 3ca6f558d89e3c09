package parser

import "fmt"

// ValidationError indicates a mandatory attribute could not be extracted
// from a fetched page. It names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Reason)
}
