package validation

import (
	"strings"

	"sheetcheck/pkg/contracts/domain"
)

// ColumnRole selects which field rule applies to a validated column
type ColumnRole int

const (
	RolePlain ColumnRole = iota
	RolePercentage
	RoleRank
	RoleOutcomeNumber
)

// String returns the role name used in logs and reports
func (r ColumnRole) String() string {
	switch r {
	case RolePercentage:
		return "percentage"
	case RoleRank:
		return "rank"
	case RoleOutcomeNumber:
		return "outcome-number"
	default:
		return "plain"
	}
}

const (
	frequencyMarker     = "frequency"
	rankMarker          = "rank"
	outcomeNumberMarker = "outcome number"
)

// ClassifyColumn maps a column name to its role. Matching is case-insensitive
// substring matching, and the first match wins in the order percentage, rank,
// outcome number. ClassifyColumn has no side effects.
func ClassifyColumn(name string) ColumnRole {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(name, "%") || strings.Contains(lower, "percent"):
		return RolePercentage
	case strings.Contains(lower, rankMarker):
		return RoleRank
	case strings.Contains(lower, outcomeNumberMarker):
		return RoleOutcomeNumber
	default:
		return RolePlain
	}
}

// IsFrequencyColumn reports whether a column carries a row's check frequency
func IsFrequencyColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), frequencyMarker)
}

// PlannedColumn is a validated column with its position in the row and its role
type PlannedColumn struct {
	Name  string
	Index int
	Role  ColumnRole
}

// ColumnPlan is the per-table column layout used for row evaluation
type ColumnPlan struct {
	Validated []PlannedColumn
	Skipped   []string
	// FrequencyIndex is -1 when the table has no frequency column
	FrequencyIndex int
}

// ValidatedNames returns the names of the validated columns in table order
func (p ColumnPlan) ValidatedNames() []string {
	names := make([]string, len(p.Validated))
	for i, c := range p.Validated {
		names[i] = c.Name
	}
	return names
}

// PlanColumns splits the columns of a table into validated and skipped sets,
// assigns roles and locates the frequency column.
func PlanColumns(columns []string, rules domain.RuleSet) ColumnPlan {
	plan := ColumnPlan{
		Validated:      make([]PlannedColumn, 0, len(columns)),
		Skipped:        []string{},
		FrequencyIndex: -1,
	}

	fragments := make([]string, 0, len(rules.SkipColumns))
	for _, f := range rules.SkipColumns {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			fragments = append(fragments, f)
		}
	}

	for i, name := range columns {
		if plan.FrequencyIndex < 0 && IsFrequencyColumn(name) {
			plan.FrequencyIndex = i
		}
		if matchesAny(strings.ToLower(name), fragments) {
			plan.Skipped = append(plan.Skipped, name)
			continue
		}
		plan.Validated = append(plan.Validated, PlannedColumn{
			Name:  name,
			Index: i,
			Role:  ClassifyColumn(name),
		})
	}

	return plan
}

func matchesAny(name string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}
