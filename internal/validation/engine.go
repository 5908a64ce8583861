package validation

import (
	"fmt"
	"strconv"
	"strings"

	"sheetcheck/pkg/contracts/domain"
)

// DetailAllPassed is the verdict detail of a row without findings
const DetailAllPassed = "All validations passed"

// FieldRuleEngine evaluates single rows against a rule set.
// It holds no mutable state and is safe for concurrent use.
type FieldRuleEngine struct {
	rankThreshold float64
}

// NewFieldRuleEngine creates an engine for the given rules
func NewFieldRuleEngine(rules domain.RuleSet) *FieldRuleEngine {
	return &FieldRuleEngine{rankThreshold: rules.RankThreshold}
}

// Evaluate checks the validated columns of one row. rowIndex is the 1-based
// physical position of the row in its table.
func (e *FieldRuleEngine) Evaluate(rowIndex int, row domain.Row, columns []PlannedColumn) domain.RowVerdict {
	verdict := domain.RowVerdict{
		RowIndex:       rowIndex,
		Status:         domain.RowStatusValid,
		ColumnsChecked: len(columns),
	}

	for _, col := range columns {
		value := cellAt(row, col.Index)

		if value.IsBlank() {
			verdict.MissingColumns = append(verdict.MissingColumns, col.Name)
			continue
		}

		if msg, ok := e.check(col, value); !ok {
			verdict.InvalidValues = append(verdict.InvalidValues, domain.InvalidFinding{
				Column:  col.Name,
				Message: msg,
			})
		}
	}

	details := make([]string, 0, 1+len(verdict.InvalidValues))
	if len(verdict.MissingColumns) > 0 {
		verdict.Status = domain.RowStatusMissing
		details = append(details, "Missing values in: "+strings.Join(verdict.MissingColumns, ", "))
	}
	if len(verdict.InvalidValues) > 0 {
		if verdict.Status == domain.RowStatusValid {
			verdict.Status = domain.RowStatusInvalid
		}
		for _, f := range verdict.InvalidValues {
			details = append(details, f.Message)
		}
	}

	if len(details) == 0 {
		verdict.Details = DetailAllPassed
	} else {
		verdict.Details = strings.Join(details, "; ")
	}
	return verdict
}

// check applies the role rule to a non-blank value
func (e *FieldRuleEngine) check(col PlannedColumn, value domain.Value) (string, bool) {
	switch col.Role {
	case RoleRank:
		// Non-numeric ranks are not checked
		if f, ok := value.Float(); ok && f > e.rankThreshold {
			return fmt.Sprintf("%s: %s exceeds rank threshold (%s)",
				col.Name, domain.FormatNumber(f), domain.FormatNumber(e.rankThreshold)), false
		}
	case RoleOutcomeNumber:
		if _, ok := value.Float(); ok {
			return "", true
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(value.String()), 64); err != nil {
			return fmt.Sprintf("%s: '%s' is not a valid number", col.Name, value.String()), false
		}
	}
	return "", true
}

func cellAt(row domain.Row, i int) domain.Value {
	if i < 0 || i >= len(row) {
		return domain.Null()
	}
	return row[i]
}
