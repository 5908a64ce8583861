package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"sheetcheck/internal/infrastructure"
	"sheetcheck/pkg/contracts/domain"
)

// RunTracer provides OpenTelemetry instrumentation for validation runs
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.ValidationMetrics
}

// NewRunTracer creates a new run tracer
func NewRunTracer(providers *infrastructure.OTelProviders) (*RunTracer, error) {
	if providers == nil {
		providers = infrastructure.NoopProviders(nil)
	}
	metrics, err := infrastructure.CreateValidationMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation metrics: %w", err)
	}
	return &RunTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// StartRun creates the span covering one run
func (rt *RunTracer) StartRun(ctx context.Context, runID, source string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "validation.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.source", source),
		),
	)
}

// StartTable creates the span covering the loading of one table
func (rt *RunTracer) StartTable(ctx context.Context, table string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "validation.table",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("table.id", table)),
	)
}

// RecordLoadFailure marks a table span as failed
func (rt *RunTracer) RecordLoadFailure(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	rt.metrics.LoadFailures.Add(ctx, 1)
}

// RecordTables records per-table and per-row counters of a finished report
func (rt *RunTracer) RecordTables(ctx context.Context, report *domain.AggregateReport) {
	if report == nil {
		return
	}
	for _, t := range report.Tables {
		rt.metrics.TablesTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("valid", t.IsValid)))

		counts := make(map[domain.RowStatus]int64, 4)
		for _, v := range t.Verdicts {
			counts[v.Status]++
		}
		for status, n := range counts {
			rt.metrics.RowsValidated.Add(ctx, n,
				metric.WithAttributes(attribute.String("status", string(status))))
		}
	}
}

// RecordNotification records one notification attempt
func (rt *RunTracer) RecordNotification(ctx context.Context, decision domain.NotificationDecision, sent bool) {
	rt.metrics.NotificationsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("decision", string(decision)),
			attribute.Bool("sent", sent),
		),
	)
}

// RecordRunCompletion records the outcome of a run and closes its span status
func (rt *RunTracer) RecordRunCompletion(ctx context.Context, span trace.Span, result domain.RunResult) {
	span.SetAttributes(
		attribute.String("run.status", string(result.Status)),
		attribute.String("run.decision", string(result.Decision)),
		attribute.Bool("run.notification_sent", result.NotificationSent),
		attribute.Float64("run.duration_seconds", result.Duration().Seconds()),
	)

	attrs := metric.WithAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("decision", string(result.Decision)),
	)
	rt.metrics.RunsTotal.Add(ctx, 1, attrs)
	rt.metrics.RunDuration.Record(ctx, result.Duration().Seconds(), attrs)

	infrastructure.AddSpanEvent(ctx, "validation.completed", map[string]interface{}{
		"run_id":   result.RunID,
		"status":   string(result.Status),
		"decision": string(result.Decision),
	})

	if result.Status == domain.RunStatusFailed {
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetStatus(codes.Ok, "validation run completed")
	}
}
