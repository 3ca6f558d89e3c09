package fetcher

import "time"

// Defaults for fetcher configuration.
const (
	DefaultConcurrency    = 10
	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 30 * time.Second
	DefaultBackoffBase    = 500 * time.Millisecond
	DefaultBackoffMax     = 30 * time.Second
	DefaultUserAgent      = "bookwatch/1.0"
)

// Config configures the fetcher.
type Config struct {
	// Concurrency caps the number of in-flight requests across all callers.
	Concurrency int
	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries int
	// RequestTimeout bounds each individual request attempt.
	RequestTimeout time.Duration
	// BackoffBase is the base delay for exponential backoff between retries.
	BackoffBase time.Duration
	// BackoffMax caps the backoff delay regardless of attempt count.
	BackoffMax time.Duration
	// UserAgent is sent with every request.
	UserAgent string
}

// withDefaults fills unset fields with default values.
func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}
