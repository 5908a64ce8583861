package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	apperrors "sheetcheck/internal/errors"
	"sheetcheck/internal/loader"
	"sheetcheck/internal/schedule"
	"sheetcheck/internal/storage"
	"sheetcheck/internal/workflow"
	"sheetcheck/pkg/contracts/domain"
)

// Runner executes validation runs
type Runner interface {
	RunWorkbook(ctx context.Context, source string, loader workflow.Loader, sheet string) domain.RunResult
	Schedules() []domain.RecurrenceSchedule
	Now() time.Time
}

// UploadRequest is a spreadsheet submitted for validation
type UploadRequest struct {
	Filename string
	Body     io.Reader
	// Sheet restricts the run to one sheet; empty validates every sheet
	Sheet string
}

// ValidationResponse pairs a run with the upload it validated
type ValidationResponse struct {
	Upload storage.Object   `json:"upload"`
	Result domain.RunResult `json:"result"`
}

// ScheduleStatus is the due state of one configured schedule
type ScheduleStatus struct {
	Subject   string           `json:"subject"`
	Frequency domain.Frequency `json:"frequency"`
	Due       bool             `json:"due"`
	Error     string           `json:"error,omitempty"`
}

// DueSchedules is the evaluation of every schedule for one date
type DueSchedules struct {
	Date        string           `json:"date"`
	PeriodicDue bool             `json:"periodic_due"`
	Schedules   []ScheduleStatus `json:"schedules"`
}

// ValidationService stores uploads and validates them
type ValidationService struct {
	store  storage.Store
	runner Runner
	logger *slog.Logger
}

// NewValidationService creates a validation service
func NewValidationService(store storage.Store, runner Runner, logger *slog.Logger) *ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationService{
		store:  store,
		runner: runner,
		logger: logger.With(slog.String("component", "validation_service")),
	}
}

// Submit stores an upload and validates it. A file that is not a readable
// spreadsheet is rejected before anything is stored.
func (s *ValidationService) Submit(ctx context.Context, req UploadRequest) (*ValidationResponse, error) {
	format, err := loader.FormatFromFilename(req.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Filename)
	}
	if req.Body == nil {
		return nil, ErrEmptyUpload
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	src, sheets, err := s.open(ctx, data, req.Filename, format)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	obj, err := s.store.Put(ctx, storage.Object{
		Filename:    req.Filename,
		ContentType: storage.ContentTypeFor(req.Filename),
		Sheets:      sheets,
	}, bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to store upload", err)
	}

	s.logger.InfoContext(ctx, "Upload stored",
		slog.String("key", obj.Key),
		slog.String("filename", obj.Filename),
		slog.Int64("size", obj.Size),
		slog.Int("sheets", len(sheets)))

	result := s.runner.RunWorkbook(ctx, obj.Filename, src, req.Sheet)
	return &ValidationResponse{Upload: obj, Result: result}, nil
}

// Rerun validates a stored upload again
func (s *ValidationService) Rerun(ctx context.Context, key, sheet string) (*ValidationResponse, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}

	rc, obj, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			notFound := apperrors.NewNotFoundError("upload " + key)
			notFound.Cause = err
			return nil, notFound
		}
		return nil, apperrors.NewStorageError("failed to open upload", err).WithContext("key", key)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("failed to read upload %s", key), err)
	}

	format, err := loader.FormatFromFilename(obj.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, obj.Filename)
	}
	src, _, err := s.open(ctx, data, obj.Filename, format)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	s.logger.InfoContext(ctx, "Re-running stored upload",
		slog.String("key", key),
		slog.String("sheet", sheet))

	result := s.runner.RunWorkbook(ctx, obj.Filename, src, sheet)
	return &ValidationResponse{Upload: obj, Result: result}, nil
}

// Uploads lists stored uploads, newest first
func (s *ValidationService) Uploads(ctx context.Context) ([]storage.Object, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list uploads", err)
	}
	if objects == nil {
		objects = []storage.Object{}
	}
	return objects, nil
}

// DueSchedules evaluates every configured schedule on date. A zero date
// means the current time of the runner.
func (s *ValidationService) DueSchedules(ctx context.Context, date time.Time) DueSchedules {
	if date.IsZero() {
		date = s.runner.Now()
	}

	evals := schedule.EvaluateAll(date, s.runner.Schedules())
	out := DueSchedules{
		Date:      date.Format("2006-01-02"),
		Schedules: make([]ScheduleStatus, 0, len(evals)),
	}
	for _, e := range evals {
		status := ScheduleStatus{Subject: e.Subject, Frequency: e.Frequency, Due: e.Due}
		if e.Malformed() {
			status.Error = apperrors.NewScheduleError("malformed schedule", e.Err).Error()
			s.logger.WarnContext(ctx, "Malformed schedule",
				slog.String("subject", e.Subject),
				slog.String("error", status.Error))
		}
		if e.Due {
			out.PeriodicDue = true
		}
		out.Schedules = append(out.Schedules, status)
	}
	return out
}

func (s *ValidationService) open(ctx context.Context, data []byte, name, format string) (loader.Source, []string, error) {
	src, err := loader.OpenReader(bytes.NewReader(data), name, format, s.logger)
	if err != nil {
		if errors.Is(err, loader.ErrUnknownFormat) {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	sheets, err := src.Sheets(ctx)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return src, sheets, nil
}
