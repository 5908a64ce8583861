package exporter

import (
	"strconv"
	"strings"

	"sheetcheck/pkg/contracts/domain"
)

// formatRate formats a validation rate with one decimal place
func formatRate(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// formatRowIndex leaves the row of table-level entries blank
func formatRowIndex(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatFindings joins typed-check findings as "column: message" pairs
func formatFindings(findings []domain.InvalidFinding) string {
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, f.Column+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}
