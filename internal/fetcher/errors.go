package fetcher

import "fmt"

// TransientError is a retryable fetch failure: timeout, connection error,
// HTTP 429, or a 5xx response. When returned from Fetch it means every
// allowed attempt was exhausted; Attempts carries the number made.
type TransientError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf(
			"transient fetch failure for %s after %d attempts: http status %d",
			e.URL, e.Attempts, e.StatusCode,
		)
	}
	return fmt.Sprintf(
		"transient fetch failure for %s after %d attempts: %v",
		e.URL, e.Attempts, e.Err,
	)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a non-retryable fetch failure: a malformed URL or a
// 4xx response other than 429.
type PermanentError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf(
			"permanent fetch failure for %s: http status %d",
			e.URL, e.StatusCode,
		)
	}
	return fmt.Sprintf("permanent fetch failure for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error { return e.Err }
