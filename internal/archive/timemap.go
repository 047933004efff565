package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/waysaver/internal/request"
	"github.com/thesavant42/waysaver/internal/timemap"
)

const timemapBaseURL = "https://web.archive.org/cdx/search/cdx"

// Query describes one timemap lookup.
type Query struct {
	URL             string
	MatchType       string // exact, prefix, host, domain
	Collapse        string
	Output          string // "json" (default) or "csv"
	Fields          []string
	Filter          string
	Limit           int
	ParseTimestamps bool
	TimestampFields []string // nil = timestamp, endtimestamp
}

// BuildTimemapQuery constructs the raw query string, without the leading '?'.
func BuildTimemapQuery(q Query) string {
	fields := q.Fields
	if len(fields) == 0 {
		fields = timemap.DefaultFields
	}
	output := q.Output
	if output == "" {
		output = "json"
	}

	params := url.Values{}
	params.Set("url", strings.TrimSpace(q.URL))
	if q.MatchType != "" {
		params.Set("matchType", q.MatchType)
	}
	if q.Collapse != "" {
		params.Set("collapse", q.Collapse)
	}
	params.Set("output", output)
	params.Set("fl", strings.Join(fields, ","))
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if q.Limit != 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params.Encode()
}

// TimemapClient fetches capture history for a URL.
type TimemapClient struct {
	executor *request.Executor
	logger   *log.Logger

	BaseURL   string
	UserAgent string
	Policy    request.Policy
}

// NewTimemapClient creates a timemap client. The logger may be nil; a zero
// timeout uses the executor default. The default policy carries no
// post-success jitter: a timemap lookup is a single request, so there is
// nothing to pace.
func NewTimemapClient(logger *log.Logger, timeout time.Duration) *TimemapClient {
	c := &TimemapClient{
		executor:  request.NewExecutor(timeout),
		logger:    logger,
		BaseURL:   timemapBaseURL,
		UserAgent: defaultUserAgent,
		Policy: request.Policy{
			InitialBackoff: 60 * time.Second,
			MaxRetries:     3,
			DecayPercent:   50,
		},
	}
	c.executor.OnRetry = func(attempt int, wait time.Duration, cause error) {
		if c.logger != nil {
			c.logger.Warn("transient fault, backing off", "attempt", attempt, "wait", wait, "error", cause)
		}
	}
	return c
}

// Fetch runs the query once through the executor and reshapes the payload.
// Zero captures returns (nil, nil) with a diagnostic logged; that is distinct
// from a transport or HTTP failure, which returns an error.
func (c *TimemapClient) Fetch(ctx context.Context, q Query) ([]timemap.Record, error) {
	if strings.TrimSpace(q.URL) == "" {
		return nil, fmt.Errorf("timemap query requires a URL")
	}
	if q.Output != "" && q.Output != "json" && q.Output != "csv" {
		return nil, fmt.Errorf("unsupported output mode %q", q.Output)
	}

	d, err := request.NewDescriptor(http.MethodGet, c.BaseURL+"?"+BuildTimemapQuery(q))
	if err != nil {
		return nil, err
	}
	d.Headers = browserHeaders("application/json, text/plain, */*")
	d.UserAgent = c.UserAgent

	resp, err := c.executor.Execute(ctx, d, c.Policy)
	if err != nil {
		return nil, err
	}

	var records []timemap.Record
	if q.Output == "csv" {
		fields := q.Fields
		if len(fields) == 0 {
			fields = timemap.DefaultFields
		}
		records, err = timemap.ReshapeCSV(resp.Body, fields)
	} else {
		records, err = timemap.ReshapeJSON(resp.Body)
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		if c.logger != nil {
			c.logger.Warn("no captures found", "url", q.URL)
		}
		return nil, nil
	}

	if q.ParseTimestamps {
		if err := timemap.Enrich(records, q.TimestampFields); err != nil {
			return nil, fmt.Errorf("failed to parse capture timestamps: %w", err)
		}
	}

	return records, nil
}
