// Package archive holds the Wayback Machine orchestrators: the sequential
// save pipeline and the single-shot timemap query.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/waysaver/internal/models"
	"github.com/thesavant42/waysaver/internal/request"
)

const (
	saveBaseURL      = "https://web.archive.org/save"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// browserHeaders emulate a real browser; archive.org throttles obvious bots
// harder.
func browserHeaders(accept string) map[string]string {
	return map[string]string{
		"Accept":          accept,
		"Accept-Encoding": "gzip, deflate",
		"Accept-Language": "en-US,en;q=0.9",
		"DNT":             "1",
		"Referer":         "https://web.archive.org/",
		"TE":              "trailers",
	}
}

// SaveClient submits URLs to the Save Page Now endpoint, one at a time,
// through the resilient executor.
type SaveClient struct {
	executor *request.Executor
	logger   *log.Logger

	BaseURL   string
	Method    string // GET or POST; POST carries the capture form
	UserAgent string
	Policy    request.Policy
}

// NewSaveClient creates a save client. The logger may be nil; a zero
// timeout uses the executor default.
func NewSaveClient(logger *log.Logger, timeout time.Duration) *SaveClient {
	c := &SaveClient{
		executor:  request.NewExecutor(timeout),
		logger:    logger,
		BaseURL:   saveBaseURL,
		Method:    http.MethodGet,
		UserAgent: defaultUserAgent,
		Policy:    request.DefaultPolicy(),
	}
	c.executor.OnRetry = func(attempt int, wait time.Duration, cause error) {
		if c.logger != nil {
			c.logger.Warn("transient fault, backing off", "attempt", attempt, "wait", wait, "error", cause)
		}
	}
	return c
}

// descriptor builds the save request for one target URL.
func (c *SaveClient) descriptor(target string) (*request.Descriptor, error) {
	d, err := request.NewDescriptor(c.Method, c.BaseURL+"/"+target)
	if err != nil {
		return nil, err
	}
	d.Headers = browserHeaders("text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	d.UserAgent = c.UserAgent
	if c.Method == http.MethodPost {
		d.Form = map[string]string{
			"url":         target,
			"capture_all": "on",
		}
	}
	return d, nil
}

// Save submits a single URL for capture.
func (c *SaveClient) Save(ctx context.Context, target string) (*request.Response, error) {
	d, err := c.descriptor(target)
	if err != nil {
		return nil, err
	}
	return c.executor.Execute(ctx, d, c.Policy)
}

// SaveAll submits targets in input order and returns one result per
// processed target, preserving that order. A target that exhausts its retry
// budget or hits a fatal status is recorded and the loop moves on; an
// unclassified fault or context cancellation stops the loop. In every case
// the results accumulated so far are returned, so an interrupted run never
// loses completed work.
func (c *SaveClient) SaveAll(ctx context.Context, targets []string, progress func(done, total int, target string)) ([]models.SaveResult, error) {
	results := make([]models.SaveResult, 0, len(targets))

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		resp, err := c.Save(ctx, target)
		switch {
		case err == nil:
			results = append(results, models.SaveResult{URL: target, Response: resp})
			if c.logger != nil {
				c.logger.Info("saved", "url", target, "status", resp.StatusCode)
			}
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return results, err
		case isClassified(err):
			// Per-target give-up or fatal status: record and continue.
			results = append(results, models.SaveResult{URL: target, Err: err})
			if c.logger != nil {
				c.logger.Error("save failed", "url", target, "error", err)
			}
		default:
			// Unexpected condition: stop the run, keep completed work.
			return results, fmt.Errorf("saving %s: %w", target, err)
		}

		if progress != nil {
			progress(len(results), len(targets), target)
		}
	}

	return results, nil
}

// isClassified reports whether the fault is one the pipeline absorbs per
// target rather than aborting the whole run.
func isClassified(err error) bool {
	var giveUp *request.GiveUpError
	var httpErr *request.HTTPError
	return errors.As(err, &giveUp) || errors.As(err, &httpErr)
}
