package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "sheetcheck/internal/errors"
	"sheetcheck/internal/middleware"
	"sheetcheck/internal/services"
	"sheetcheck/internal/storage"
)

// multipartMemory is the part of a multipart form kept in memory; larger
// files spill to temporary files
const multipartMemory = 8 << 20

type submitParams struct {
	Sheet string `param:"sheet" validate:"sheetname"`
}

type rerunParams struct {
	Key   string `param:"key" validate:"required,uuid"`
	Sheet string `param:"sheet" validate:"sheetname"`
}

type dueParams struct {
	Date string `param:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ValidationHandler handles uploads, runs and schedule queries
type ValidationHandler struct {
	service        ValidationServiceInterface
	validator      *middleware.RequestValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewValidationHandler creates a validation handler. Uploads larger than
// maxUploadBytes are rejected with 413.
func NewValidationHandler(service ValidationServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ValidationHandler{
		service:        service,
		validator:      middleware.NewRequestValidator(),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "validation_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the validation routes
func (h *ValidationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/validations", h.Submit)
	r.Post("/validations/{key}", h.Rerun)
	r.Get("/uploads", h.ListUploads)
	r.Get("/schedules/due", h.DueSchedules)

	return r
}

// Submit handles POST /validations
func (h *ValidationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	params := submitParams{Sheet: r.FormValue("sheet")}
	if err := h.validator.Validate(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "a spreadsheet file is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "validation upload received",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("sheet", params.Sheet))

	resp, err := h.service.Submit(r.Context(), services.UploadRequest{
		Filename: header.Filename,
		Body:     file,
		Sheet:    params.Sheet,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Rerun handles POST /validations/{key}
func (h *ValidationHandler) Rerun(w http.ResponseWriter, r *http.Request) {
	params := rerunParams{
		Key:   chi.URLParam(r, "key"),
		Sheet: r.URL.Query().Get("sheet"),
	}
	if err := h.validator.Validate(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Rerun(r.Context(), params.Key, params.Sheet)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// ListUploads handles GET /uploads
func (h *ValidationHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.service.Uploads(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"uploads": uploads,
		"count":   len(uploads),
	})
}

// DueSchedules handles GET /schedules/due
func (h *ValidationHandler) DueSchedules(w http.ResponseWriter, r *http.Request) {
	params := dueParams{Date: r.URL.Query().Get("date")}
	if err := h.validator.Validate(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var date time.Time
	if params.Date != "" {
		// layout already checked by the validator
		date, _ = time.Parse("2006-01-02", params.Date)
	}
	render.JSON(w, r, h.service.DueSchedules(r.Context(), date))
}

// handleServiceError maps service and storage errors to API errors
func (h *ValidationHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnsupportedFormat):
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFormatError(err))
	case errors.Is(err, services.ErrUnreadableWorkbook):
		h.errorHandler.HandleError(w, r, apierrors.NewParsingError("the upload is not a readable spreadsheet", err))
	case errors.Is(err, services.ErrEmptyUpload):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "the uploaded file is empty"))
	case errors.Is(err, storage.ErrInvalidKey):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("key", "must be a valid upload key"))
	case errors.Is(err, storage.ErrNotFound):
		h.errorHandler.HandleError(w, r, apierrors.ErrUploadNotFound)
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
