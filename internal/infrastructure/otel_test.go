package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sheetcheck/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider, "tracing is off by default")
	assert.NotNil(t, providers.Tracer, "no-op tracer is installed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  *OTelConfig
		wantErr bool
	}{
		{
			name: "stdout tracing and prometheus",
			config: &OTelConfig{
				ServiceName:    "test-service",
				ServiceVersion: "v1.0.0",
				Environment:    "test",
				TraceExporter:  "stdout",
				MetricExporter: "prometheus",
				EnableMetrics:  true,
				EnableTracing:  true,
				SampleRatio:    1.0,
			},
		},
		{
			name: "everything disabled",
			config: &OTelConfig{
				ServiceName:    "test-service",
				ServiceVersion: "v1.0.0",
				Environment:    "test",
				TraceExporter:  "none",
				MetricExporter: "none",
			},
		},
		{
			name: "unsupported metric exporter",
			config: &OTelConfig{
				ServiceName:    "test-service",
				MetricExporter: "statsd",
				EnableMetrics:  true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.config, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, providers.Shutdown(ctx))
		})
	}
}

func TestCreateValidationMetrics(t *testing.T) {
	providers := NoopProviders(discardLogger())

	metrics, err := CreateValidationMetrics(providers.Meter)
	require.NoError(t, err)

	assert.NotNil(t, metrics.RunsTotal)
	assert.NotNil(t, metrics.RunDuration)
	assert.NotNil(t, metrics.TablesTotal)
	assert.NotNil(t, metrics.RowsValidated)
	assert.NotNil(t, metrics.LoadFailures)
	assert.NotNil(t, metrics.NotificationsTotal)
	assert.NotNil(t, metrics.HTTPRequestsTotal)

	// Recording on no-op instruments must not panic
	metrics.RunsTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("decision", "clean")))
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestOTelConfigFromTelemetry(t *testing.T) {
	tests := []struct {
		name            string
		in              config.TelemetryConfig
		wantTracing     bool
		wantMetrics     bool
		wantSample      float64
		wantExporter    string
		wantEnvironment string
	}{
		{
			name:            "defaults",
			in:              config.TelemetryConfig{},
			wantTracing:     false,
			wantMetrics:     true,
			wantSample:      1.0,
			wantExporter:    "prometheus",
			wantEnvironment: DefaultOTelConfig().Environment,
		},
		{
			name:            "stdout traces without metrics",
			in:              config.TelemetryConfig{Environment: "staging", TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 0.25},
			wantTracing:     true,
			wantMetrics:     false,
			wantSample:      0.25,
			wantExporter:    "none",
			wantEnvironment: "staging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := OTelConfigFromTelemetry(tt.in)
			assert.Equal(t, tt.wantTracing, cfg.EnableTracing)
			assert.Equal(t, tt.wantMetrics, cfg.EnableMetrics)
			assert.Equal(t, tt.wantSample, cfg.SampleRatio)
			assert.Equal(t, tt.wantExporter, cfg.MetricExporter)
			assert.Equal(t, tt.wantEnvironment, cfg.Environment)
			assert.Equal(t, ServiceName, cfg.ServiceName)
		})
	}
}
