package domain

import (
	"time"
)

// RowStatus is the outcome of validating a single row
type RowStatus string

const (
	RowStatusValid   RowStatus = "valid"
	RowStatusMissing RowStatus = "missing"
	RowStatusInvalid RowStatus = "invalid"
	RowStatusSkipped RowStatus = "skipped"
)

// InvalidFinding is a typed-check violation found in one cell
type InvalidFinding struct {
	Column  string `json:"column"`
	Message string `json:"message"`
}

// RowVerdict is the validation outcome for one table row
type RowVerdict struct {
	RowIndex       int              `json:"row_index"`
	Status         RowStatus        `json:"status"`
	MissingColumns []string         `json:"missing_columns,omitempty"`
	InvalidValues  []InvalidFinding `json:"invalid_values,omitempty"`
	Details        string           `json:"details"`
	FrequencyValue string           `json:"frequency_value,omitempty"`
	ColumnsChecked int              `json:"columns_checked"`
}

// IsValid reports whether the row passed every check
func (v RowVerdict) IsValid() bool {
	return v.Status == RowStatusValid
}

// TableSummary carries the counters of one table report
type TableSummary struct {
	TotalRows              int      `json:"total_rows"`
	ValidRows              int      `json:"valid_rows"`
	ErrorRows              int      `json:"error_rows"`
	SkippedRows            int      `json:"skipped_rows"`
	ValidationRate         float64  `json:"validation_rate"`
	TotalColumns           int      `json:"total_columns"`
	Columns                []string `json:"columns"`
	ValidationColumns      int      `json:"validation_columns"`
	ValidatedColumns       []string `json:"validated_columns"`
	SkippedColumns         []string `json:"skipped_columns"`
	MissingRequiredColumns []string `json:"missing_required_columns,omitempty"`
	RankThresholdUsed      float64  `json:"rank_threshold_used"`
}

// ColumnNulls records where a required column holds null cells
type ColumnNulls struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Rows   []int  `json:"rows"`
}

// MissingDataDetails describes the null distribution of a table
type MissingDataDetails struct {
	HasMissingData    bool          `json:"has_missing_data"`
	EmptyRows         []int         `json:"empty_rows,omitempty"`
	RequiredNulls     []ColumnNulls `json:"required_nulls,omitempty"`
	MostlyEmptyRows   []int         `json:"mostly_empty_rows,omitempty"`
	TotalMissingCells int           `json:"total_missing_cells"`
}

// ErrorKind classifies an entry of a report error list
type ErrorKind string

const (
	ErrorKindRow               ErrorKind = "row"
	ErrorKindRequiredColumn    ErrorKind = "required_column"
	ErrorKindLoadFailure       ErrorKind = "load_failure"
	ErrorKindEvaluationFailure ErrorKind = "evaluation_failure"
)

// ReportError is one entry in a table or aggregate error list.
// RowIndex is zero for table-level entries.
type ReportError struct {
	Table          string           `json:"table"`
	Kind           ErrorKind        `json:"kind"`
	RowIndex       int              `json:"row_index"`
	Status         RowStatus        `json:"status,omitempty"`
	Message        string           `json:"message"`
	MissingColumns []string         `json:"missing_columns,omitempty"`
	InvalidValues  []InvalidFinding `json:"invalid_values,omitempty"`
}

// TableReport is the validation outcome for one table
type TableReport struct {
	TableID     string             `json:"table_id"`
	IsValid     bool               `json:"is_valid"`
	Verdicts    []RowVerdict       `json:"verdicts"`
	Summary     TableSummary       `json:"summary"`
	MissingData MissingDataDetails `json:"missing_data"`
	Errors      []ReportError      `json:"errors"`
	Failure     string             `json:"failure,omitempty"`
}

// Failed reports whether the table could not be evaluated at all
func (r TableReport) Failed() bool {
	return r.Failure != ""
}

// AggregateSummary carries run-wide counters
type AggregateSummary struct {
	SheetsProcessed int            `json:"sheets_processed"`
	TotalErrors     int            `json:"total_errors"`
	ErrorsBySheet   map[string]int `json:"errors_by_sheet"`
}

// AggregateReport merges every table report of one run
type AggregateReport struct {
	Source          string           `json:"source,omitempty"`
	Tables          []TableReport    `json:"tables"`
	IsValid         bool             `json:"is_valid"`
	Errors          []ReportError    `json:"errors"`
	PeriodicTrigger bool             `json:"periodic_trigger"`
	DueSchedules    []string         `json:"due_schedules,omitempty"`
	Summary         AggregateSummary `json:"summary"`
}

// Table returns the report of the given table, if present
func (r *AggregateReport) Table(id string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.TableID == id {
			return t, true
		}
	}
	return TableReport{}, false
}

// NotificationDecision selects which message a run hands to the notifier
type NotificationDecision string

const (
	DecisionIssuesFound NotificationDecision = "issues_found"
	DecisionPeriodicDue NotificationDecision = "periodic_due"
	DecisionClean       NotificationDecision = "clean"
)

// RunStatus is the terminal state of a validation run
type RunStatus string

const (
	RunStatusSuccess    RunStatus = "completed_success"
	RunStatusWithIssues RunStatus = "completed_with_issues"
	RunStatusFailed     RunStatus = "failed"
)

// RunResult is the outcome of one end-to-end validation run
type RunResult struct {
	RunID            string               `json:"run_id"`
	Source           string               `json:"source"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       time.Time            `json:"finished_at"`
	Report           *AggregateReport     `json:"report,omitempty"`
	Decision         NotificationDecision `json:"decision,omitempty"`
	NotificationSent bool                 `json:"notification_sent"`
	Status           RunStatus            `json:"status"`
	// Error is the failure of a failed run, or the undelivered notification
	// of a completed one
	Error string `json:"error,omitempty"`
}

// Duration returns the wall time of the run
func (r RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
