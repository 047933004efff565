// Package timemap reshapes raw CDX timemap payloads into records.
package timemap

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the fixed 14-digit capture timestamp format
// (YYYYMMDDhhmmss, UTC).
const TimestampLayout = "20060102150405"

// DefaultFields is the canonical timemap column set, in API order.
var DefaultFields = []string{"original", "mimetype", "timestamp", "endtimestamp", "groupcount", "uniqcount"}

// DefaultTimestampFields are the columns enriched with parsed times when the
// caller does not name its own.
var DefaultTimestampFields = []string{"timestamp", "endtimestamp"}

// Record is one capture row. Values holds the raw string fields keyed by
// column name; Parsed holds enrichment results keyed "<field>_datetime".
// Records are read-only once returned, except for the enrichment pass.
type Record struct {
	Values map[string]string
	Parsed map[string]time.Time
}

// Get returns a raw field value.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// ReshapeJSON parses the "json" output mode. The payload is not real JSON:
// each row is comma-separated values wrapped in brackets/braces, so every
// [ ] { } is stripped and the remainder is read as headerful CSV (first row
// holds the field names). Zero records is a valid outcome.
func ReshapeJSON(body []byte) ([]Record, error) {
	cleaned := strings.Map(func(c rune) rune {
		switch c {
		case '[', ']', '{', '}':
			return -1
		}
		return c
	}, string(body))

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.FieldsPerRecord = -1 // bracket stripping leaves trailing commas
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse timemap payload: %w", err)
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}

	// Trim trailing empty header cells left over from stripped brackets.
	header := rows[0]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		values := make(map[string]string, len(header))
		for i, name := range header {
			if i >= len(row) {
				break
			}
			values[name] = row[i]
		}
		records = append(records, Record{Values: values})
	}
	return records, nil
}

// ReshapeCSV parses the "csv" output mode: space-delimited rows with no
// header, mapped positionally onto the supplied field names. A row with
// fewer tokens than fields leaves the trailing fields absent; a row with
// more tokens is an error rather than a silent truncation.
func ReshapeCSV(body []byte, fields []string) ([]Record, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("csv mode requires field names")
	}

	var records []Record
	for i, line := range strings.Split(string(body), "\n") {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > len(fields) {
			return nil, fmt.Errorf("row %d has %d fields, want at most %d", i+1, len(tokens), len(fields))
		}
		values := make(map[string]string, len(tokens))
		for j, tok := range tokens {
			values[fields[j]] = tok
		}
		records = append(records, Record{Values: values})
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Enrich parses the named 14-digit timestamp fields on every record and
// attaches the result as "<field>_datetime". Fields absent on a record are
// skipped; a present but malformed value fails the whole batch. A nil field
// list uses DefaultTimestampFields.
func Enrich(records []Record, fields []string) error {
	if fields == nil {
		fields = DefaultTimestampFields
	}
	for i := range records {
		for _, field := range fields {
			raw, ok := records[i].Values[field]
			if !ok {
				continue
			}
			ts, err := time.ParseInLocation(TimestampLayout, raw, time.UTC)
			if err != nil {
				return fmt.Errorf("record %d: invalid %s %q: %w", i, field, raw, err)
			}
			if records[i].Parsed == nil {
				records[i].Parsed = make(map[string]time.Time, len(fields))
			}
			records[i].Parsed[field+"_datetime"] = ts
		}
	}
	return nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
