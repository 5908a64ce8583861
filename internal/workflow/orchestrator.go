package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sheetcheck/internal/schedule"
	"sheetcheck/internal/validation"
	"sheetcheck/pkg/contracts/domain"
)

// TableInput is one table handed to the orchestrator. LoadErr is set when the
// loader could not produce the table.
type TableInput struct {
	ID      string
	Table   *domain.Table
	LoadErr error
}

// id returns the identifier used to tag the table's report and errors
func (in TableInput) id() string {
	if in.ID != "" || in.Table == nil {
		return in.ID
	}
	return in.Table.Name
}

// Orchestrator validates the tables of one run, merges their reports and
// decides the single notification of the run
type Orchestrator struct {
	validator   *validation.RowValidator
	logger      *slog.Logger
	parallelism int
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithParallelism validates up to n tables concurrently. The merged report is
// identical to a sequential run.
func WithParallelism(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		validator:   validation.NewRowValidator(logger),
		logger:      logger.With(slog.String("component", "orchestrator")),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run validates every table, merges the reports in input order, evaluates the
// schedules on now and returns the notification decision. A non-nil error means
// the run failed as a whole; the returned report then holds the partial results.
func (o *Orchestrator) Run(ctx context.Context, inputs []TableInput, rules domain.RuleSet, schedules []domain.RecurrenceSchedule, now time.Time) (*domain.AggregateReport, domain.NotificationDecision, error) {
	reports, err := o.validateAll(ctx, inputs, rules)
	if err != nil {
		partial := &domain.AggregateReport{Tables: compact(reports)}
		return partial, "", err
	}

	report, err := o.merge(reports)
	if err != nil {
		return report, "", err
	}

	o.applySchedules(report, schedules, now)

	decision := Decide(report.IsValid, report.PeriodicTrigger)

	o.logger.InfoContext(ctx, "Validation run evaluated",
		slog.Int("tables", len(report.Tables)),
		slog.Int("errors", len(report.Errors)),
		slog.Bool("is_valid", report.IsValid),
		slog.Bool("periodic_trigger", report.PeriodicTrigger),
		slog.String("decision", string(decision)))

	return report, decision, nil
}

// Decide applies the decision rule: issues first, then the calendar, then clean
func Decide(isValid, periodicTrigger bool) domain.NotificationDecision {
	switch {
	case !isValid:
		return domain.DecisionIssuesFound
	case periodicTrigger:
		return domain.DecisionPeriodicDue
	default:
		return domain.DecisionClean
	}
}

// validateAll fills one report slot per input so the order never depends on scheduling
func (o *Orchestrator) validateAll(ctx context.Context, inputs []TableInput, rules domain.RuleSet) ([]*domain.TableReport, error) {
	reports := make([]*domain.TableReport, len(inputs))

	if o.parallelism <= 1 {
		for i, in := range inputs {
			if err := ctx.Err(); err != nil {
				return reports, NewCancellationError(err)
			}
			r := o.validateOne(in, rules)
			reports[i] = &r
		}
		return reports, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return NewCancellationError(err)
			}
			r := o.validateOne(in, rules)
			reports[i] = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

func (o *Orchestrator) validateOne(in TableInput, rules domain.RuleSet) domain.TableReport {
	id := in.id()

	if in.LoadErr != nil {
		o.logger.Warn("Table could not be loaded",
			slog.String("table", id),
			slog.String("error", in.LoadErr.Error()))
		return validation.FailedReport(id, domain.ErrorKindLoadFailure, in.LoadErr.Error())
	}

	report := o.validator.Validate(in.Table, rules)
	retag(&report, id)
	return report
}

// merge builds the aggregate report. A fault while merging fails the run but
// keeps the tables merged so far.
func (o *Orchestrator) merge(reports []*domain.TableReport) (agg *domain.AggregateReport, err error) {
	agg = &domain.AggregateReport{
		Tables:  make([]domain.TableReport, 0, len(reports)),
		IsValid: true,
		Errors:  []domain.ReportError{},
		Summary: domain.AggregateSummary{ErrorsBySheet: make(map[string]int, len(reports))},
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Failed to merge table reports",
				slog.Int("merged_tables", len(agg.Tables)),
				slog.Any("panic", r))
			agg.IsValid = false
			err = NewOrchestrationError("failed to merge table reports", fmt.Errorf("%v", r))
		}
	}()

	for _, r := range reports {
		if r == nil {
			agg.IsValid = false
			return agg, NewOrchestrationError(fmt.Sprintf("missing report for table %d", len(agg.Tables)+1), nil)
		}
		agg.Tables = append(agg.Tables, *r)
		agg.IsValid = agg.IsValid && r.IsValid
		agg.Errors = append(agg.Errors, r.Errors...)
		agg.Summary.ErrorsBySheet[r.TableID] += len(r.Errors)
	}

	agg.Summary.SheetsProcessed = len(agg.Tables)
	agg.Summary.TotalErrors = len(agg.Errors)
	return agg, nil
}

func (o *Orchestrator) applySchedules(report *domain.AggregateReport, schedules []domain.RecurrenceSchedule, now time.Time) {
	for _, eval := range schedule.EvaluateAll(now, schedules) {
		if eval.Malformed() {
			o.logger.Warn("Ignoring malformed schedule",
				slog.String("subject", eval.Subject),
				slog.String("error", eval.Err.Error()))
			continue
		}
		if eval.Due {
			report.PeriodicTrigger = true
			report.DueSchedules = append(report.DueSchedules, eval.Subject)
		}
	}
}

// retag makes a report and its errors carry the input identifier
func retag(report *domain.TableReport, id string) {
	if report.TableID == id {
		return
	}
	report.TableID = id
	for i := range report.Errors {
		report.Errors[i].Table = id
	}
}

func compact(reports []*domain.TableReport) []domain.TableReport {
	out := make([]domain.TableReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
