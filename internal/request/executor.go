// Package request executes single logical HTTP requests against the archive
// with bounded retries, decaying backoff, and server-provided wait hints.
package request

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 180 * time.Second // archive endpoints are slow under load

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Executor issues one request at a time through a shared http.Client,
// retrying transient faults per the supplied Policy. It performs no I/O
// besides the network call and its waits; retry visibility goes through
// the optional OnRetry hook so callers can log without the executor
// depending on a logger.
type Executor struct {
	httpClient *http.Client

	// OnRetry, if set, is called before each retry wait with the attempt
	// number just failed, the wait about to be taken, and the fault.
	OnRetry func(attempt int, wait time.Duration, cause error)

	// Overridable in tests so waits can be observed without sleeping.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64 // uniform in [0.5, 1.5)
}

// NewExecutor creates an executor with the given request timeout.
// A zero timeout uses the default.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Executor{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Execute runs the request to completion: a success, a terminal give-up
// (*GiveUpError), an immediate fatal HTTP status (*HTTPError), or an
// unclassified error propagated as-is without retry.
//
// Transient faults (transport errors and the retryable status set) consume
// the retry budget; each wait uses the running backoff, except a 429 with a
// Retry-After header, which replaces that one wait. The running backoff
// decays by DecayPercent/100 after every wait regardless of any override.
func (e *Executor) Execute(ctx context.Context, d *Descriptor, p Policy) (*Response, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	backoff := p.InitialBackoff
	retriesLeft := p.MaxRetries
	attempt := 0

	for {
		attempt++
		resp, fault := e.attempt(ctx, d)
		if fault == nil {
			// Courtesy pacing between consecutive top-level calls,
			// never between retries.
			if p.JitterBase > 0 {
				wait := time.Duration(float64(p.JitterBase) * e.jitterFactor())
				if err := e.wait(ctx, wait); err != nil {
					return resp, err
				}
			}
			return resp, nil
		}

		var httpErr *HTTPError
		var transportErr *TransportError
		wait := backoff

		switch {
		case errors.As(fault, &httpErr):
			if !httpErr.Retryable() {
				return nil, fault
			}
			if secs, ok := httpErr.RetryAfter(); ok {
				wait = time.Duration(secs) * time.Second
			}
		case errors.As(fault, &transportErr):
			// no server hint possible; use the running backoff
		default:
			// Unclassified fault (request build, body read): surface
			// immediately, no retry.
			return nil, fault
		}

		if retriesLeft == 0 {
			return nil, &GiveUpError{
				Attempts: attempt,
				Partial:  partialResponse(fault),
				Err:      fault,
			}
		}

		if e.OnRetry != nil {
			e.OnRetry(attempt, wait, fault)
		}
		if err := e.wait(ctx, wait); err != nil {
			return nil, err
		}

		backoff = backoff * time.Duration(p.DecayPercent) / 100
		retriesLeft--
	}
}

// attempt issues the request once and classifies the outcome.
func (e *Executor) attempt(ctx context.Context, d *Descriptor) (*Response, error) {
	req, err := d.httpRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	// We send Accept-Encoding ourselves, which disables the transport's
	// transparent decompression, so handle gzip here.
	var reader io.Reader = resp.Body
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	r := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Response: r}
	}
	return r, nil
}

// wait blocks for d or until the context is cancelled.
func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if e.sleep != nil {
		return e.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) jitterFactor() float64 {
	if e.jitter != nil {
		return e.jitter()
	}
	return 0.5 + rand.Float64()
}

// partialResponse extracts whatever response the last fault carried.
func partialResponse(fault error) *Response {
	var httpErr *HTTPError
	if errors.As(fault, &httpErr) {
		return httpErr.Response
	}
	return nil
}
