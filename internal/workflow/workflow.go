package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sheetcheck/pkg/contracts/domain"
)

// Loader produces tables from one source
type Loader interface {
	Sheets(ctx context.Context) ([]string, error)
	Load(ctx context.Context, sheet string) (*domain.Table, error)
}

// Notifier delivers the single message of a run. It returns true when the
// message was dispatched.
type Notifier interface {
	Notify(ctx context.Context, decision domain.NotificationDecision, report *domain.AggregateReport) bool
}

// Workflow runs validation end to end: load, orchestrate, notify
type Workflow struct {
	orchestrator *Orchestrator
	notifier     Notifier
	rules        domain.RuleSet
	schedules    []domain.RecurrenceSchedule
	tracer       *RunTracer
	clock        func() time.Time
	logger       *slog.Logger
}

// Option configures a Workflow
type Option func(*Workflow)

// WithClock overrides the time source used for schedules and timestamps
func WithClock(clock func() time.Time) Option {
	return func(w *Workflow) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithTracer sets the instrumentation of the workflow
func WithTracer(tracer *RunTracer) Option {
	return func(w *Workflow) {
		if tracer != nil {
			w.tracer = tracer
		}
	}
}

// WithOrchestrator replaces the default sequential orchestrator
func WithOrchestrator(o *Orchestrator) Option {
	return func(w *Workflow) {
		if o != nil {
			w.orchestrator = o
		}
	}
}

// New creates a workflow. A nil notifier disables notifications.
func New(rules domain.RuleSet, schedules []domain.RecurrenceSchedule, notifier Notifier, logger *slog.Logger, opts ...Option) (*Workflow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workflow{
		notifier:  notifier,
		rules:     rules,
		schedules: schedules,
		clock:     time.Now,
		logger:    logger.With(slog.String("component", "workflow")),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.orchestrator == nil {
		w.orchestrator = NewOrchestrator(logger)
	}
	if w.tracer == nil {
		tracer, err := NewRunTracer(nil)
		if err != nil {
			return nil, err
		}
		w.tracer = tracer
	}
	return w, nil
}

// Rules returns the rule set the workflow validates with
func (w *Workflow) Rules() domain.RuleSet {
	return w.rules
}

// Schedules returns the recurrence schedules the workflow evaluates
func (w *Workflow) Schedules() []domain.RecurrenceSchedule {
	return w.schedules
}

// Now returns the current time of the workflow clock
func (w *Workflow) Now() time.Time {
	return w.clock()
}

// RunWorkbook validates one sheet of a source, or every sheet when sheet is
// empty, and sends exactly one notification unless the run failed.
func (w *Workflow) RunWorkbook(ctx context.Context, source string, loader Loader, sheet string) domain.RunResult {
	runID := uuid.New().String()
	ctx, span := w.tracer.StartRun(ctx, runID, source)
	defer span.End()

	w.logger.InfoContext(ctx, "Validation run started",
		slog.String("run_id", runID),
		slog.String("source", source),
		slog.String("sheet", sheet))

	inputs := w.loadInputs(ctx, source, loader, sheet)
	result := w.run(ctx, runID, source, inputs)

	w.tracer.RecordRunCompletion(ctx, span, result)
	return result
}

// RunTables validates already loaded tables and sends exactly one
// notification unless the run failed
func (w *Workflow) RunTables(ctx context.Context, source string, inputs []TableInput) domain.RunResult {
	runID := uuid.New().String()
	ctx, span := w.tracer.StartRun(ctx, runID, source)
	defer span.End()

	result := w.run(ctx, runID, source, inputs)

	w.tracer.RecordRunCompletion(ctx, span, result)
	return result
}

func (w *Workflow) run(ctx context.Context, runID, source string, inputs []TableInput) domain.RunResult {
	result := domain.RunResult{
		RunID:     runID,
		Source:    source,
		StartedAt: w.clock(),
	}

	report, decision, err := w.orchestrator.Run(ctx, inputs, w.rules, w.schedules, result.StartedAt)
	if report != nil {
		report.Source = source
	}
	result.Report = report
	w.tracer.RecordTables(ctx, report)

	if err != nil {
		result.Status = domain.RunStatusFailed
		result.Error = err.Error()
		result.FinishedAt = w.clock()
		w.logger.ErrorContext(ctx, "Validation run failed",
			slog.String("run_id", runID),
			slog.String("source", source),
			slog.String("error", err.Error()))
		return result
	}

	result.Decision = decision
	if decision == domain.DecisionClean {
		result.Status = domain.RunStatusSuccess
	} else {
		result.Status = domain.RunStatusWithIssues
	}

	if w.notifier != nil {
		result.NotificationSent = w.notifier.Notify(ctx, decision, report)
		w.tracer.RecordNotification(ctx, decision, result.NotificationSent)
		if !result.NotificationSent {
			result.Error = NewNotificationError(string(decision)).Error()
			w.logger.WarnContext(ctx, "Notification was not dispatched",
				slog.String("run_id", runID),
				slog.String("error", result.Error))
		}
	}

	result.FinishedAt = w.clock()
	w.logger.InfoContext(ctx, "Validation run finished",
		slog.String("run_id", runID),
		slog.String("status", string(result.Status)),
		slog.String("decision", string(decision)),
		slog.Bool("notification_sent", result.NotificationSent),
		slog.Int("total_errors", report.Summary.TotalErrors))
	return result
}

// loadInputs reads the requested sheets. A failure to list sheets becomes a
// single load failure named after the source.
func (w *Workflow) loadInputs(ctx context.Context, source string, loader Loader, sheet string) []TableInput {
	var sheets []string
	if sheet != "" {
		sheets = []string{sheet}
	} else {
		names, err := loader.Sheets(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to list sheets",
				slog.String("source", source),
				slog.String("error", err.Error()))
			return []TableInput{{ID: source, LoadErr: NewLoadError(source, err)}}
		}
		sheets = names
	}

	inputs := make([]TableInput, 0, len(sheets))
	for _, name := range sheets {
		tctx, span := w.tracer.StartTable(ctx, name)
		table, err := loader.Load(tctx, name)
		if err != nil {
			w.tracer.RecordLoadFailure(tctx, span, err)
			inputs = append(inputs, TableInput{ID: name, LoadErr: NewLoadError(name, err)})
		} else {
			inputs = append(inputs, TableInput{ID: name, Table: table})
		}
		span.End()
	}
	return inputs
}
