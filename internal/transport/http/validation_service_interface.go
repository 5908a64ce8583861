package http

import (
	"context"
	"time"

	"sheetcheck/internal/services"
	"sheetcheck/internal/storage"
)

// ValidationServiceInterface defines the operations behind the validation routes
type ValidationServiceInterface interface {
	Submit(ctx context.Context, req services.UploadRequest) (*services.ValidationResponse, error)
	Rerun(ctx context.Context, key, sheet string) (*services.ValidationResponse, error)
	Uploads(ctx context.Context) ([]storage.Object, error)
	DueSchedules(ctx context.Context, date time.Time) services.DueSchedules
}
