package validation

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"sheetcheck/pkg/contracts/domain"
)

// RowValidator validates every row of a table and builds the table report
type RowValidator struct {
	logger *slog.Logger
}

// NewRowValidator creates a new row validator
func NewRowValidator(logger *slog.Logger) *RowValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowValidator{
		logger: logger.With(slog.String("component", "row_validator")),
	}
}

// Validate evaluates a table against the rule set. A table that cannot be
// evaluated yields a failed report instead of an error so that other tables of
// the same run are unaffected.
func (v *RowValidator) Validate(table *domain.Table, rules domain.RuleSet) (report domain.TableReport) {
	if table == nil {
		return FailedReport("", domain.ErrorKindEvaluationFailure, "no table data")
	}
	if err := table.CheckShape(); err != nil {
		v.logger.Error("Table cannot be evaluated",
			slog.String("table", table.Name),
			slog.String("error", err.Error()))
		return FailedReport(table.Name, domain.ErrorKindEvaluationFailure, err.Error())
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Panic while evaluating table",
				slog.String("table", table.Name),
				slog.Any("panic", r))
			report = FailedReport(table.Name, domain.ErrorKindEvaluationFailure, fmt.Sprintf("evaluation panic: %v", r))
		}
	}()

	plan := PlanColumns(table.Columns, rules)
	engine := NewFieldRuleEngine(rules)
	skipKeywords := normalizeKeywords(rules.FrequencySkipKeywords)

	report = domain.TableReport{
		TableID:  table.Name,
		Verdicts: make([]domain.RowVerdict, 0, len(table.Rows)),
	}

	for i, row := range table.Rows {
		rowIndex := i + 1

		if plan.FrequencyIndex >= 0 {
			freq := cellAt(row, plan.FrequencyIndex)
			if !freq.IsBlank() && skipKeywords[strings.ToLower(freq.String())] {
				report.Verdicts = append(report.Verdicts, domain.RowVerdict{
					RowIndex:       rowIndex,
					Status:         domain.RowStatusSkipped,
					Details:        "Skipped due to frequency: " + freq.String(),
					FrequencyValue: freq.String(),
					ColumnsChecked: len(plan.Validated),
				})
				continue
			}
		}

		verdict := engine.Evaluate(rowIndex, row, plan.Validated)
		if plan.FrequencyIndex >= 0 {
			verdict.FrequencyValue = cellAt(row, plan.FrequencyIndex).String()
		}
		report.Verdicts = append(report.Verdicts, verdict)
	}

	absent := missingRequiredColumns(table, rules)
	report.MissingData = inspectMissingData(table, rules)
	report.Summary = summarize(table, plan, report.Verdicts, rules)
	report.Summary.MissingRequiredColumns = absent

	report.Errors = requiredColumnErrors(table.Name, absent, requiredNulls(report.MissingData, rules))
	tableLevel := len(report.Errors)
	for _, verdict := range report.Verdicts {
		if !verdict.IsValid() {
			report.Errors = append(report.Errors, rowError(table.Name, verdict))
		}
	}
	if report.Errors == nil {
		report.Errors = []domain.ReportError{}
	}
	// every verdict valid and no structural problem
	report.IsValid = tableLevel == 0 && report.Summary.ValidRows == report.Summary.TotalRows

	v.logger.Debug("Table validated",
		slog.String("table", table.Name),
		slog.Int("total_rows", report.Summary.TotalRows),
		slog.Int("valid_rows", report.Summary.ValidRows),
		slog.Int("skipped_rows", report.Summary.SkippedRows),
		slog.Int("validated_columns", report.Summary.ValidationColumns),
		slog.Bool("is_valid", report.IsValid))

	return report
}

// FailedReport builds the report of a table that could not be loaded or evaluated.
// It carries a single synthetic error entry with the failure message.
func FailedReport(tableID string, kind domain.ErrorKind, message string) domain.TableReport {
	return domain.TableReport{
		TableID:  tableID,
		IsValid:  false,
		Verdicts: []domain.RowVerdict{},
		Summary: domain.TableSummary{
			Columns:          []string{},
			ValidatedColumns: []string{},
			SkippedColumns:   []string{},
		},
		Errors: []domain.ReportError{{
			Table:   tableID,
			Kind:    kind,
			Message: message,
		}},
		Failure: message,
	}
}

func summarize(table *domain.Table, plan ColumnPlan, verdicts []domain.RowVerdict, rules domain.RuleSet) domain.TableSummary {
	s := domain.TableSummary{
		TotalRows:         len(verdicts),
		TotalColumns:      len(table.Columns),
		Columns:           append([]string{}, table.Columns...),
		ValidationColumns: len(plan.Validated),
		ValidatedColumns:  plan.ValidatedNames(),
		SkippedColumns:    plan.Skipped,
		RankThresholdUsed: rules.RankThreshold,
	}
	for _, verdict := range verdicts {
		switch verdict.Status {
		case domain.RowStatusValid:
			s.ValidRows++
		case domain.RowStatusSkipped:
			s.SkippedRows++
		}
	}
	s.ErrorRows = s.TotalRows - s.ValidRows
	s.ValidationRate = validationRate(s.ValidRows, s.TotalRows)
	return s
}

// validationRate returns the share of valid rows in percent, rounded to one decimal
func validationRate(valid, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(valid)/float64(total)*1000) / 10
}

func rowError(tableID string, verdict domain.RowVerdict) domain.ReportError {
	return domain.ReportError{
		Table:          tableID,
		Kind:           domain.ErrorKindRow,
		RowIndex:       verdict.RowIndex,
		Status:         verdict.Status,
		Message:        verdict.Details,
		MissingColumns: verdict.MissingColumns,
		InvalidValues:  verdict.InvalidValues,
	}
}

// requiredNulls keeps the null entries of required columns only. Nulls in
// non-nullable columns are reported in the missing data details.
func requiredNulls(details domain.MissingDataDetails, rules domain.RuleSet) []domain.ColumnNulls {
	required := make(map[string]bool, len(rules.RequiredColumns))
	for _, name := range rules.RequiredColumns {
		required[name] = true
	}
	var out []domain.ColumnNulls
	for _, n := range details.RequiredNulls {
		if required[n.Column] {
			out = append(out, n)
		}
	}
	return out
}

func normalizeKeywords(keywords []string) map[string]bool {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = true
		}
	}
	return set
}
