package models

import "github.com/thesavant42/waysaver/internal/request"

// SaveResult is the outcome of one save submission. Exactly one of Response
// and Err is meaningful; a failed submission keeps its position in the batch.
type SaveResult struct {
	URL      string
	Response *request.Response
	Err      error
}

// OK reports whether the submission succeeded.
func (r SaveResult) OK() bool {
	return r.Err == nil
}

// SaveSummary aggregates a save batch.
type SaveSummary struct {
	Submitted int
	Saved     int
	Failed    int
}

// Summarize counts outcomes across a result list.
func Summarize(results []SaveResult) SaveSummary {
	s := SaveSummary{Submitted: len(results)}
	for _, r := range results {
		if r.OK() {
			s.Saved++
		} else {
			s.Failed++
		}
	}
	return s
}
