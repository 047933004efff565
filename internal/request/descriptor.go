package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Descriptor describes one logical HTTP request. It is built once, validated
// at construction, and reused unchanged across retries.
type Descriptor struct {
	URL       string
	Method    string
	Headers   map[string]string
	Form      map[string]string // URL-encoded on send; implies a request body
	UserAgent string
}

// NewDescriptor validates and returns a request descriptor.
// Method must be GET or POST.
func NewDescriptor(method, rawURL string) (*Descriptor, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported method %q", method)
	}
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("empty URL")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	return &Descriptor{
		URL:     rawURL,
		Method:  method,
		Headers: make(map[string]string),
	}, nil
}

// httpRequest materializes the descriptor into a net/http request.
func (d *Descriptor) httpRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(d.Form) > 0 {
		form := url.Values{}
		for k, v := range d.Form {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	return req, nil
}

// Policy controls the retry schedule for one Execute call. The executor
// never mutates it; the running backoff and retry counter are local copies.
type Policy struct {
	InitialBackoff time.Duration // wait before the first retry
	MaxRetries     int           // retries beyond the initial attempt
	DecayPercent   int           // running backoff is multiplied by this/100 after each wait
	JitterBase     time.Duration // post-success pacing sleep, scaled by U(0.5,1.5); 0 disables
}

// DefaultPolicy returns the schedule used for save requests: 60s initial
// backoff halving across 3 retries, with a 5s courtesy jitter on success.
func DefaultPolicy() Policy {
	return Policy{
		InitialBackoff: 60 * time.Second,
		MaxRetries:     3,
		DecayPercent:   50,
		JitterBase:     5 * time.Second,
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.InitialBackoff < 0 {
		return fmt.Errorf("initial backoff must be >= 0, got %v", p.InitialBackoff)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.DecayPercent < 1 || p.DecayPercent > 100 {
		return fmt.Errorf("decay percent must be in [1,100], got %d", p.DecayPercent)
	}
	if p.JitterBase < 0 {
		return fmt.Errorf("jitter base must be >= 0, got %v", p.JitterBase)
	}
	return nil
}
