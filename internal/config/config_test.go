package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sheetcheck/internal/errors"
	"sheetcheck/pkg/contracts/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5.0, cfg.Validation.RankThreshold)
	assert.Contains(t, cfg.Validation.SkipColumns, "q1")
	assert.Contains(t, cfg.Validation.SkipColumns, "half-yearly")
	assert.Equal(t, []string{"quarterly", "half-yearly", "half_yearly"}, cfg.Validation.FrequencySkipKeywords)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "log", cfg.Notification.Transport)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		file          string
		env           map[string]string
		wantErr       bool
		errorContains string
		validateCfg   func(*testing.T, *Config)
	}{
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
  read_timeout: 5s
validation:
  required_columns: [ID, Name]
  rank_threshold: 3
schedules:
  - subject: Monthly KPIs
    frequency: monthly
    deadline_day: 28
  - subject: Half-year review
    frequency: bi-annual
    deadline_day: 15
    deadline_months: [6, 12]
notification:
  enabled: true
  transport: dev
  email: bu@example.com
  cc: [ops@example.com]
sources:
  google_credentials_file: creds.json
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout, "unset fields keep defaults")
				assert.Equal(t, []string{"ID", "Name"}, cfg.Validation.RequiredColumns)
				assert.Equal(t, 3.0, cfg.Validation.RankThreshold)
				assert.Contains(t, cfg.Validation.SkipColumns, "quarterly")
				require.Len(t, cfg.Schedules, 2)
				assert.Equal(t, []int{6, 12}, cfg.Schedules[1].DeadlineMonths)
				assert.Equal(t, "dev", cfg.Notification.Transport)
				assert.True(t, filepath.IsAbs(cfg.Sources.GoogleCredentialsFile))
				assert.Equal(t, "creds.json", filepath.Base(cfg.Sources.GoogleCredentialsFile))
			},
		},
		{
			name: "env overrides file",
			file: "server:\n  port: 9090\nlogging:\n  level: info\n",
			env: map[string]string{
				"SHEETCHECK_SERVER_PORT":                   "7070",
				"SHEETCHECK_LOGGING_LEVEL":                 "DEBUG",
				"SHEETCHECK_VALIDATION_REQUIRED_COLUMNS":   "ID,Amount",
				"SHEETCHECK_SERVER_RATE_LIMIT_RPS":         "2.5",
				"SHEETCHECK_STORAGE_S3_BUCKET":             "uploads",
				"SHEETCHECK_NOTIFICATION_SUBJECT_TEMPLATE": "Alert",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, []string{"ID", "Amount"}, cfg.Validation.RequiredColumns)
				assert.Equal(t, 2.5, cfg.Server.RateLimit.RPS)
				assert.Equal(t, "uploads", cfg.Storage.S3.Bucket)
				assert.Equal(t, "Alert", cfg.Notification.SubjectTemplate)
			},
		},
		{
			name:          "invalid port",
			file:          "server:\n  port: 70000\n",
			wantErr:       true,
			errorContains: "Port",
		},
		{
			name:          "invalid cc address",
			file:          "notification:\n  cc: [not-an-email]\n",
			wantErr:       true,
			errorContains: "CC",
		},
		{
			name:          "s3 backend without bucket",
			file:          "storage:\n  backend: s3\n",
			wantErr:       true,
			errorContains: "bucket and region",
		},
		{
			name:          "postmark without token",
			file:          "notification:\n  enabled: true\n  transport: postmark\n",
			wantErr:       true,
			errorContains: "server token",
		},
		{
			name:          "malformed yaml",
			file:          "server: [",
			wantErr:       true,
			errorContains: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.file))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_ErrorsAreConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") }},
		{name: "malformed yaml", path: func(t *testing.T) string { return writeConfig(t, "server: [") }},
		{name: "invalid value", path: func(t *testing.T) string { return writeConfig(t, "server:\n  port: 70000\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
		})
	}
}

func TestConfig_RuleSetAndSchedules(t *testing.T) {
	cfg := Default()
	cfg.Validation.RequiredColumns = []string{"ID"}
	cfg.Schedules = []ScheduleConfig{
		{Subject: "Annual", Frequency: "annual", DeadlineDay: 31, DeadlineMonth: 12},
	}

	rules := cfg.RuleSet()
	assert.Equal(t, []string{"ID"}, rules.RequiredColumns)
	assert.Equal(t, 5.0, rules.RankThreshold)

	rules.RequiredColumns[0] = "changed"
	assert.Equal(t, "ID", cfg.Validation.RequiredColumns[0], "rule set is a copy")

	schedules := cfg.RecurrenceSchedules()
	require.Len(t, schedules, 1)
	assert.Equal(t, domain.FrequencyAnnual, schedules[0].Frequency)
	assert.Equal(t, 12, schedules[0].DeadlineMonth)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("conf", "creds.json"), ResolvePath("conf", "creds.json"))
	assert.Equal(t, "/abs/creds.json", ResolvePath("conf", "/abs/creds.json"))
	assert.Equal(t, "", ResolvePath("conf", ""))
}
