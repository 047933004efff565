package request

import (
	"fmt"
	"net/http"
	"strconv"
)

// retryableStatus is the fixed set of HTTP status codes treated as
// transient. Anything else outside 2xx aborts the retry loop immediately.
var retryableStatus = map[int]bool{
	http.StatusNotFound:            true, // 404 - archive.org returns this transiently under load
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooEarly:            true, // 425
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// TransportError wraps a network-level failure where no HTTP response was
// received at all (connection reset, timeout, DNS failure). Always retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport fault: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx HTTP response. The response body and
// headers are preserved so callers can inspect partial results.
type HTTPError struct {
	StatusCode int
	Response   *Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("archive API returned status %d", e.StatusCode)
}

// Retryable reports whether the status code is in the transient set.
func (e *HTTPError) Retryable() bool {
	return retryableStatus[e.StatusCode]
}

// RetryAfter returns the server-provided wait hint in seconds, if present.
// Only honored on 429 responses; the header is expected to be an integer.
func (e *HTTPError) RetryAfter() (int, bool) {
	if e.StatusCode != http.StatusTooManyRequests || e.Response == nil {
		return 0, false
	}
	raw := e.Response.Headers.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}

// GiveUpError is returned when the retry budget is exhausted. It preserves
// the last fault and whatever partial response is available.
type GiveUpError struct {
	Attempts int
	Partial  *Response
	Err      error
}

func (e *GiveUpError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GiveUpError) Unwrap() error {
	return e.Err
}
