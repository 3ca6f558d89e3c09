// Package fetcher provides bounded-concurrency HTTP retrieval with
// retry and exponential backoff.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonesrussell/bookwatch/internal/logger"
)

// Status code boundaries used when classifying responses.
const (
	statusOKLow        = 200
	statusOKHigh       = 299
	statusClientErrLow = 400
	statusTooManyReqs  = 429
	statusServerErrLow = 500
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Fetcher performs HTTP GET requests with a global in-flight cap shared
// by every caller, a per-request timeout, and retry with exponential
// backoff plus jitter for transient failures.
type Fetcher struct {
	client *http.Client
	sem    *semaphore.Weighted
	cfg    Config
	log    logger.Interface

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a fetcher from the given configuration.
func New(cfg Config, log logger.Interface) *Fetcher {
	cfg = cfg.withDefaults()

	return &Fetcher{
		client: &http.Client{},
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		cfg:    cfg,
		log:    log.WithComponent("fetcher"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch retrieves the body at rawURL. It blocks while the concurrency
// limit is saturated, so no more than the configured number of requests
// are ever in flight at once. Transient failures are retried with
// exponential backoff; permanent failures return immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &PermanentError{
			URL: rawURL,
			Err: fmt.Errorf("malformed url: %w", parseErr),
		}
	}

	if acquireErr := f.sem.Acquire(ctx, 1); acquireErr != nil {
		return nil, fmt.Errorf("acquire fetch slot: %w", acquireErr)
	}
	defer f.sem.Release(1)

	var lastTransient *TransientError

	maxAttempts := f.cfg.MaxRetries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if waitErr := f.waitBackoff(ctx, attempt); waitErr != nil {
				lastTransient.Attempts = attempt
				return nil, lastTransient
			}
		}

		body, fetchErr := f.attempt(ctx, rawURL)
		if fetchErr == nil {
			return body, nil
		}

		var transient *TransientError
		if !errors.As(fetchErr, &transient) {
			return nil, fetchErr
		}

		lastTransient = transient
		f.log.Debug("fetch attempt failed",
			"url", rawURL,
			"attempt", attempt+1,
			"error", fetchErr.Error(),
		)
	}

	lastTransient.Attempts = maxAttempts
	return nil, lastTransient
}

// attempt performs a single request with the per-request timeout applied.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, &PermanentError{URL: rawURL, Err: reqErr}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		// Timeouts and connection failures are transient.
		return nil, &TransientError{URL: rawURL, Err: doErr}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= statusOKLow && resp.StatusCode <= statusOKHigh:
		limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
		body, readErr := io.ReadAll(limited)
		if readErr != nil {
			return nil, &TransientError{URL: rawURL, Err: readErr}
		}
		return body, nil

	case resp.StatusCode == statusTooManyReqs || resp.StatusCode >= statusServerErrLow:
		return nil, &TransientError{URL: rawURL, StatusCode: resp.StatusCode}

	case resp.StatusCode >= statusClientErrLow:
		return nil, &PermanentError{URL: rawURL, StatusCode: resp.StatusCode}

	default:
		return nil, &PermanentError{URL: rawURL, StatusCode: resp.StatusCode}
	}
}

// waitBackoff sleeps for base * 2^(attempt-1) plus random jitter, capped
// at the configured maximum. Returns an error when the context is
// cancelled before the delay elapses.
func (f *Fetcher) waitBackoff(ctx context.Context, attempt int) error {
	delay := f.cfg.BackoffBase << (attempt - 1)
	if delay > f.cfg.BackoffMax || delay <= 0 {
		delay = f.cfg.BackoffMax
	}

	delay += f.jitter(delay)
	if delay > f.cfg.BackoffMax {
		delay = f.cfg.BackoffMax
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// jitter returns a random duration in [0, delay/2).
func (f *Fetcher) jitter(delay time.Duration) time.Duration {
	half := int64(delay) / 2
	if half <= 0 {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Duration(f.rng.Int63n(half))
}
