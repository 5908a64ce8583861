package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetcheck/internal/config"
	"sheetcheck/internal/infrastructure"
	"sheetcheck/internal/notify"
	"sheetcheck/internal/storage"
	"sheetcheck/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	decisions []domain.NotificationDecision
}

func (n *recordingNotifier) Notify(ctx context.Context, decision domain.NotificationDecision, report *domain.AggregateReport) bool {
	n.decisions = append(n.decisions, decision)
	return true
}

func newTestApplication(t *testing.T, notifier *recordingNotifier) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Validation.RequiredColumns = []string{"ID"}
	cfg.Schedules = []config.ScheduleConfig{
		{Subject: "Monthly KPIs", Frequency: "monthly", DeadlineDay: 28},
	}

	store, err := storage.NewLocalStore(t.TempDir(), quietLogger())
	require.NoError(t, err)

	deps := Dependencies{
		Store:         store,
		OTelProviders: infrastructure.NoopProviders(quietLogger()),
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	a, err := NewApplication(context.Background(), cfg, quietLogger(), deps)
	require.NoError(t, err)
	return a
}

func uploadCSV(t *testing.T, handler http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validations", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestApplication_ValidationFlow(t *testing.T) {
	notifier := &recordingNotifier{}
	a := newTestApplication(t, notifier)

	rec := uploadCSV(t, a.Router, "sales.csv", "ID,Amount\n1,10\n,20\n")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var created struct {
		Upload storage.Object   `json:"upload"`
		Result domain.RunResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.RunStatusWithIssues, created.Result.Status)
	assert.True(t, created.Result.NotificationSent)
	require.NotNil(t, created.Result.Report)
	assert.False(t, created.Result.Report.IsValid)

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/validations/"+created.Upload.Key, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Upload.Key)

	assert.Len(t, notifier.decisions, 2, "one notification per run")
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApplication(t, nil)

	tests := []struct {
		name         string
		method       string
		path         string
		wantStatus   int
		wantContains string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantContains: `"status":"ok"`},
		{name: "ready", method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK, wantContains: `"storage"`},
		{name: "version", method: http.MethodGet, path: "/api/v1/version", wantStatus: http.StatusOK, wantContains: `"version"`},
		{name: "due schedules", method: http.MethodGet, path: "/api/v1/schedules/due?date=2024-05-25", wantStatus: http.StatusOK, wantContains: `"periodic_due":true`},
		{name: "bad date", method: http.MethodGet, path: "/api/v1/schedules/due?date=tomorrow", wantStatus: http.StatusBadRequest, wantContains: "/errors/validation"},
		{name: "unknown upload", method: http.MethodPost, path: "/api/v1/validations/" + storage.NewKey(), wantStatus: http.StatusNotFound, wantContains: "UPLOAD_NOT_FOUND"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound, wantContains: "/errors/not-found"},
		{name: "wrong method", method: http.MethodDelete, path: "/healthz", wantStatus: http.StatusMethodNotAllowed, wantContains: "not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantContains)
		})
	}
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApplication(t, nil)
	a.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx))
	assert.NoError(t, ctx.Err(), "a clean shutdown does not cancel the application context")
}

func TestNewApplication_NilConfig(t *testing.T) {
	_, err := NewApplication(context.Background(), nil, quietLogger(), Dependencies{})
	require.Error(t, err)
}

func TestBuildSender(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.NotificationConfig
		wantType      interface{}
		wantErr       bool
		errorContains string
	}{
		{name: "log", cfg: config.NotificationConfig{Transport: "log"}, wantType: &notify.LogSender{}},
		{name: "dev", cfg: config.NotificationConfig{Transport: "dev", DevDir: "outbox"}, wantType: &notify.DevSender{}},
		{name: "postmark", cfg: config.NotificationConfig{Transport: "postmark", PostmarkServerToken: "token", From: "alerts@example.com"}, wantType: &notify.PostmarkSender{}},
		{name: "postmark without token", cfg: config.NotificationConfig{Transport: "postmark", From: "alerts@example.com"}, wantErr: true, errorContains: "server token"},
		{name: "unknown", cfg: config.NotificationConfig{Transport: "pigeon"}, wantErr: true, errorContains: "pigeon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := BuildSender(tt.cfg, quietLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sender)
		})
	}
}

func TestBuildNotifier_Disabled(t *testing.T) {
	n, err := BuildNotifier(config.NotificationConfig{Enabled: false, Transport: "pigeon"}, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = BuildNotifier(config.NotificationConfig{Enabled: true, Transport: "log"}, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestBuildStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := BuildStore(context.Background(), config.StorageConfig{Backend: "local", LocalDir: dir}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, store)
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)

	_, err = BuildStore(context.Background(), config.StorageConfig{Backend: "tape"}, quietLogger())
	assert.Error(t, err)
}

func TestBuildWorkflow(t *testing.T) {
	cfg := config.Default()
	cfg.Validation.Parallelism = 4
	cfg.Validation.RequiredColumns = []string{"ID"}

	wf, err := BuildWorkflow(cfg, nil, infrastructure.NoopProviders(quietLogger()), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"ID"}, wf.Rules().RequiredColumns)
}
