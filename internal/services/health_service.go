package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"sheetcheck/internal/storage"
	"sheetcheck/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     storage.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual dependency health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. The store is probed by the
// readiness check.
func NewHealthService(store storage.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   contracts.Version,
		store:     store,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the upload store answers
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  map[string]ServiceHealth{},
	}

	storeHealth := ServiceHealth{Status: "ready"}
	if hs.store == nil {
		storeHealth = ServiceHealth{Status: "not_ready", Message: "no upload store configured"}
	} else if _, err := hs.store.List(ctx); err != nil {
		hs.logger.WarnContext(ctx, "Upload store not ready", slog.String("error", err.Error()))
		storeHealth = ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	status.Services["storage"] = storeHealth

	if storeHealth.Status != "ready" {
		status.Status = "not_ready"
	}
	return status
}
