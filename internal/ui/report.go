// Package ui renders CLI output. This is a non-interactive report surface:
// tables are built with string formatting and lipgloss is used only to
// color the resulting text.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/thesavant42/waysaver/internal/models"
	"github.com/thesavant42/waysaver/internal/timemap"
)

const maxCellWidth = 60

// PrintBanner prints the tool header.
func PrintBanner(version string) {
	fmt.Println(titleStyle.Render("waysaver " + version))
	fmt.Println(subtitleStyle.Render("Wayback Machine capture & timemap client"))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	successStyle := lipgloss.NewStyle().
		Foreground(green).
		Bold(true)
	fmt.Println(successStyle.Render(message))
}

// PrintError prints an error message
func PrintError(message string) {
	errorStyle := lipgloss.NewStyle().
		Foreground(red).
		Bold(true)
	fmt.Println(errorStyle.Render("Error: " + message))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	warnStyle := lipgloss.NewStyle().Foreground(yellow)
	fmt.Println(warnStyle.Render(message))
}

// PrintProgress prints an in-place progress line during a save batch.
func PrintProgress(done, total int, target string) {
	progressStyle := lipgloss.NewStyle().Foreground(yellow)
	fmt.Printf("\r%s", progressStyle.Render(fmt.Sprintf("Saving... %d/%d (%s)", done, total, truncate(target, maxCellWidth))))
	if done == total {
		fmt.Println()
	}
}

// PrintSaveResults prints one line per submitted URL plus a summary.
func PrintSaveResults(results []models.SaveResult) {
	for _, r := range results {
		if r.OK() {
			fmt.Println(rowStyle.Render(fmt.Sprintf("✓ %s", r.URL)))
		} else {
			fmt.Println(failedRowStyle.Render(fmt.Sprintf("✗ %s  (%v)", r.URL, r.Err)))
		}
	}

	s := models.Summarize(results)
	summary := fmt.Sprintf("Saved %s of %d URLs", statStyle.Render(fmt.Sprintf("%d", s.Saved)), s.Submitted)
	if s.Failed > 0 {
		summary += fmt.Sprintf(", %d failed", s.Failed)
	}
	fmt.Println()
	fmt.Println(subtitleStyle.Render(summary))
}

// PrintRecordTable prints timemap records as a bordered table with the given
// column order. Enriched timestamp fields render as RFC3339 when present.
func PrintRecordTable(title string, records []timemap.Record, fields []string) {
	if len(records) == 0 {
		fmt.Println(subtitleStyle.Render(title + ": No data"))
		return
	}
	if len(fields) == 0 {
		fields = timemap.DefaultFields
	}

	fmt.Println(titleStyle.Render(title))

	// Column widths sized to content, capped.
	colWidths := make([]int, len(fields))
	for i, f := range fields {
		colWidths[i] = len(f)
	}
	cells := make([][]string, len(records))
	for ri, rec := range records {
		row := make([]string, len(fields))
		for fi, f := range fields {
			row[fi] = truncate(cellValue(rec, f), maxCellWidth)
			if len(row[fi]) > colWidths[fi] {
				colWidths[fi] = len(row[fi])
			}
		}
		cells[ri] = row
	}

	totalWidth := 1
	for _, w := range colWidths {
		totalWidth += w + 3 // column width + " │ " separator
	}
	separator := strings.Repeat("─", totalWidth-1)

	fmt.Println(borderStyle.Render("┌" + separator + "┐"))
	fmt.Println(headerStyle.Render(formatRow(fields, colWidths)))
	fmt.Println(borderStyle.Render("├" + separator + "┤"))
	for _, row := range cells {
		fmt.Println(rowStyle.Render(formatRow(row, colWidths)))
	}
	fmt.Println(borderStyle.Render("└" + separator + "┘"))

	fmt.Println(subtitleStyle.Render(fmt.Sprintf("%s captures", statStyle.Render(fmt.Sprintf("%d", len(records))))))
}

// cellValue prefers the parsed time for enriched fields.
func cellValue(rec timemap.Record, field string) string {
	if ts, ok := rec.Parsed[field+"_datetime"]; ok {
		return ts.Format(time.RFC3339)
	}
	if v, ok := rec.Get(field); ok {
		return v
	}
	return "-"
}

func formatRow(values []string, widths []int) string {
	var b strings.Builder
	b.WriteString("│")
	for i, v := range values {
		fmt.Fprintf(&b, " %-*s │", widths[i], v)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
