package validation

import (
	"fmt"

	"sheetcheck/pkg/contracts/domain"
)

// mostlyEmptyRatio is the share of null cells above which a row is reported as mostly empty
const mostlyEmptyRatio = 0.5

// inspectMissingData computes the null distribution of a table. Row numbers are 1-based.
func inspectMissingData(table *domain.Table, rules domain.RuleSet) domain.MissingDataDetails {
	details := domain.MissingDataDetails{}
	width := len(table.Columns)
	threshold := float64(width) * mostlyEmptyRatio

	for i, row := range table.Rows {
		nulls := 0
		for c := 0; c < width; c++ {
			if cellAt(row, c).IsNull() {
				nulls++
			}
		}
		details.TotalMissingCells += nulls

		if width > 0 && nulls == width {
			details.EmptyRows = append(details.EmptyRows, i+1)
		}
		if float64(nulls) > threshold {
			details.MostlyEmptyRows = append(details.MostlyEmptyRows, i+1)
		}
	}

	for _, name := range nonNullColumns(rules) {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		entry := domain.ColumnNulls{Column: name}
		for i, row := range table.Rows {
			if cellAt(row, idx).IsNull() {
				entry.Count++
				entry.Rows = append(entry.Rows, i+1)
			}
		}
		if entry.Count > 0 {
			details.RequiredNulls = append(details.RequiredNulls, entry)
		}
	}

	details.HasMissingData = len(details.EmptyRows) > 0 ||
		len(details.MostlyEmptyRows) > 0 ||
		len(details.RequiredNulls) > 0
	return details
}

// missingRequiredColumns lists required columns absent from the table
func missingRequiredColumns(table *domain.Table, rules domain.RuleSet) []string {
	var missing []string
	for _, name := range rules.RequiredColumns {
		if table.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// requiredColumnErrors converts structural problems into table-level report errors
func requiredColumnErrors(tableID string, absent []string, nulls []domain.ColumnNulls) []domain.ReportError {
	var errs []domain.ReportError
	for _, name := range absent {
		errs = append(errs, domain.ReportError{
			Table:   tableID,
			Kind:    domain.ErrorKindRequiredColumn,
			Message: fmt.Sprintf("Required column '%s' is missing", name),
		})
	}
	for _, n := range nulls {
		errs = append(errs, domain.ReportError{
			Table:   tableID,
			Kind:    domain.ErrorKindRequiredColumn,
			Message: fmt.Sprintf("Required column '%s' has %d null value(s)", n.Column, n.Count),
		})
	}
	return errs
}

// nonNullColumns returns required and non-nullable column names without duplicates
func nonNullColumns(rules domain.RuleSet) []string {
	seen := make(map[string]bool, len(rules.RequiredColumns)+len(rules.NonNullableColumns))
	var out []string
	for _, group := range [][]string{rules.RequiredColumns, rules.NonNullableColumns} {
		for _, name := range group {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
