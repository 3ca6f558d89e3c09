package crawler

import "fmt"

// UnrecoverableSourceError means the source could not be reached at crawl
// start. The run fails immediately, before any pagination.
type UnrecoverableSourceError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *UnrecoverableSourceError) Error() string {
	return fmt.Sprintf("source unreachable at %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnrecoverableSourceError) Unwrap() error { return e.Err }
