package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// recordingExecutor returns an executor whose waits are captured instead of
// slept, so retry schedules can be asserted without real delays.
func recordingExecutor(waits *[]time.Duration) *Executor {
	e := NewExecutor(5 * time.Second)
	e.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return e
}

func mustDescriptor(t *testing.T, method, url string) *Descriptor {
	t.Helper()
	d, err := NewDescriptor(method, url)
	if err != nil {
		t.Fatalf("NewDescriptor(%s, %s) failed: %v", method, url, err)
	}
	return d
}

// TestExecuteAttemptBudget verifies that a permanently failing endpoint is
// hit exactly maxRetries+1 times before giving up.
func TestExecuteAttemptBudget(t *testing.T) {
	for _, retries := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			attempts := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			var waits []time.Duration
			e := recordingExecutor(&waits)
			policy := Policy{InitialBackoff: time.Second, MaxRetries: retries, DecayPercent: 50}

			_, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)

			var giveUp *GiveUpError
			if !errors.As(err, &giveUp) {
				t.Fatalf("Execute() error = %v, want *GiveUpError", err)
			}
			if attempts != retries+1 {
				t.Errorf("attempts = %d, want %d", attempts, retries+1)
			}
			if giveUp.Attempts != retries+1 {
				t.Errorf("GiveUpError.Attempts = %d, want %d", giveUp.Attempts, retries+1)
			}
		})
	}
}

// TestExecuteBackoffDecay verifies the decaying wait schedule:
// initial 60s at 50% decay over 3 retries waits 60, 30, 15.
func TestExecuteBackoffDecay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)
	policy := Policy{InitialBackoff: 60 * time.Second, MaxRetries: 3, DecayPercent: 50}

	_, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)
	if err == nil {
		t.Fatal("Execute() expected give-up error, got nil")
	}

	want := []time.Duration{60 * time.Second, 30 * time.Second, 15 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

// TestExecuteRetryAfterOverride verifies that a 429 Retry-After hint
// replaces one wait without disturbing the decayed schedule that follows.
func TestExecuteRetryAfterOverride(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)
	policy := Policy{InitialBackoff: 60 * time.Second, MaxRetries: 2, DecayPercent: 50}

	_, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)
	if err == nil {
		t.Fatal("Execute() expected give-up error, got nil")
	}

	// First wait is the header value; the next reverts to the running
	// backoff, which decayed to 30s despite the 120s override.
	want := []time.Duration{120 * time.Second, 30 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

// TestExecuteFatalStatus verifies a status outside the retryable set aborts
// immediately with no retries consumed.
func TestExecuteFatalStatus(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)
	policy := Policy{InitialBackoff: time.Second, MaxRetries: 5, DecayPercent: 50}

	_, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Execute() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", httpErr.StatusCode)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(waits) != 0 {
		t.Errorf("waits = %v, want none", waits)
	}
}

// TestExecuteTransportFaultRetries verifies that a connection-level failure
// consumes the budget like any other transient fault.
func TestExecuteTransportFaultRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // all requests now fail at the transport level

	var waits []time.Duration
	e := recordingExecutor(&waits)
	policy := Policy{InitialBackoff: time.Second, MaxRetries: 2, DecayPercent: 100}

	_, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)

	var giveUp *GiveUpError
	if !errors.As(err, &giveUp) {
		t.Fatalf("Execute() error = %v, want *GiveUpError", err)
	}
	var transportErr *TransportError
	if !errors.As(giveUp.Err, &transportErr) {
		t.Errorf("wrapped error = %v, want *TransportError", giveUp.Err)
	}
	if giveUp.Partial != nil {
		t.Errorf("Partial = %+v, want nil for transport fault", giveUp.Partial)
	}
	if len(waits) != 2 {
		t.Errorf("waits = %v, want 2 entries", waits)
	}
}

// TestExecuteSuccessJitter verifies the pacing sleep happens exactly once on
// success, scaled by the jitter factor, and never on failure paths.
func TestExecuteSuccessJitter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)
	e.jitter = func() float64 { return 1.5 }
	policy := Policy{InitialBackoff: time.Second, MaxRetries: 3, DecayPercent: 50, JitterBase: 10 * time.Second}

	resp, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("body = %q, want %q", resp.Body, "ok")
	}
	if len(waits) != 1 || waits[0] != 15*time.Second {
		t.Errorf("waits = %v, want exactly [15s]", waits)
	}
}

// TestExecuteNoJitterWhenDisabled verifies a zero JitterBase skips the
// post-success wait entirely.
func TestExecuteNoJitterWhenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)
	policy := Policy{InitialBackoff: time.Second, MaxRetries: 1, DecayPercent: 50}

	if _, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if len(waits) != 0 {
		t.Errorf("waits = %v, want none", waits)
	}
}

// TestExecuteGiveUpPreservesPartial verifies the last HTTP response survives
// retry exhaustion.
func TestExecuteGiveUpPreservesPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream went away")
	}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)
	policy := Policy{InitialBackoff: time.Second, MaxRetries: 1, DecayPercent: 50}

	_, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy)

	var giveUp *GiveUpError
	if !errors.As(err, &giveUp) {
		t.Fatalf("Execute() error = %v, want *GiveUpError", err)
	}
	if giveUp.Partial == nil {
		t.Fatal("Partial = nil, want last response preserved")
	}
	if giveUp.Partial.StatusCode != http.StatusBadGateway {
		t.Errorf("Partial.StatusCode = %d, want 502", giveUp.Partial.StatusCode)
	}
	if string(giveUp.Partial.Body) != "upstream went away" {
		t.Errorf("Partial.Body = %q, want upstream message", giveUp.Partial.Body)
	}
}

// TestExecuteCancelledDuringWait verifies context cancellation interrupts a
// backoff wait.
func TestExecuteCancelledDuringWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(5 * time.Second)
	e.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	policy := Policy{InitialBackoff: time.Minute, MaxRetries: 3, DecayPercent: 50}

	_, err := e.Execute(ctx, mustDescriptor(t, "GET", srv.URL), policy)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

// TestExecuteOnRetryHook verifies the hook sees each retry with its wait.
func TestExecuteOnRetryHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var waits []time.Duration
	e := recordingExecutor(&waits)

	var hookAttempts []int
	e.OnRetry = func(attempt int, wait time.Duration, cause error) {
		hookAttempts = append(hookAttempts, attempt)
		if cause == nil {
			t.Error("OnRetry cause = nil, want the fault")
		}
	}
	policy := Policy{InitialBackoff: time.Second, MaxRetries: 2, DecayPercent: 50}

	if _, err := e.Execute(context.Background(), mustDescriptor(t, "GET", srv.URL), policy); err == nil {
		t.Fatal("Execute() expected give-up error, got nil")
	}
	if len(hookAttempts) != 2 || hookAttempts[0] != 1 || hookAttempts[1] != 2 {
		t.Errorf("hook attempts = %v, want [1 2]", hookAttempts)
	}
}

// TestExecuteInvalidPolicy verifies bad policies are rejected before any
// network activity.
func TestExecuteInvalidPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"negative backoff", Policy{InitialBackoff: -time.Second, DecayPercent: 50}},
		{"negative retries", Policy{MaxRetries: -1, DecayPercent: 50}},
		{"zero decay", Policy{DecayPercent: 0}},
		{"decay over 100", Policy{DecayPercent: 101}},
		{"negative jitter", Policy{DecayPercent: 50, JitterBase: -time.Second}},
	}

	e := NewExecutor(time.Second)
	d := mustDescriptor(t, "GET", "http://127.0.0.1:1")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Execute(context.Background(), d, tt.policy); err == nil {
				t.Error("Execute() accepted invalid policy")
			}
		})
	}
}
