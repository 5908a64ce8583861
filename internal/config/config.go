package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "sheetcheck/internal/errors"
	"sheetcheck/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Validation   ValidationConfig   `yaml:"validation" envconfig:"VALIDATION"`
	Schedules    []ScheduleConfig   `yaml:"schedules" ignored:"true"`
	Notification NotificationConfig `yaml:"notification" envconfig:"NOTIFICATION"`
	Storage      StorageConfig      `yaml:"storage" envconfig:"STORAGE"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" envconfig:"TELEMETRY"`
	Sources      SourcesConfig      `yaml:"sources" envconfig:"SOURCES"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout stderr file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ValidationConfig holds the column rules applied to every table
type ValidationConfig struct {
	RequiredColumns       []string `yaml:"required_columns" envconfig:"REQUIRED_COLUMNS"`
	NonNullableColumns    []string `yaml:"non_nullable_columns" envconfig:"NON_NULLABLE_COLUMNS"`
	SkipColumns           []string `yaml:"skip_columns" envconfig:"SKIP_COLUMNS"`
	RankThreshold         float64  `yaml:"rank_threshold" envconfig:"RANK_THRESHOLD" validate:"gte=0"`
	FrequencySkipKeywords []string `yaml:"frequency_skip_keywords" envconfig:"FREQUENCY_SKIP_KEYWORDS"`
	Parallelism           int      `yaml:"parallelism" envconfig:"PARALLELISM" validate:"gte=0"`
}

// ScheduleConfig describes one recurring reporting deadline. Schedules are
// not validated here; malformed entries are reported and ignored at run time.
type ScheduleConfig struct {
	Subject        string `yaml:"subject"`
	Frequency      string `yaml:"frequency"`
	DeadlineDay    int    `yaml:"deadline_day"`
	DeadlineMonths []int  `yaml:"deadline_months"`
	DeadlineMonth  int    `yaml:"deadline_month"`
}

// NotificationConfig selects the email transport and the recipients
type NotificationConfig struct {
	Enabled              bool     `yaml:"enabled" envconfig:"ENABLED"`
	Transport            string   `yaml:"transport" envconfig:"TRANSPORT" validate:"oneof=postmark dev log"`
	BusinessUnit         string   `yaml:"business_unit" envconfig:"BUSINESS_UNIT"`
	Email                string   `yaml:"email" envconfig:"EMAIL" validate:"omitempty,email"`
	CC                   []string `yaml:"cc" envconfig:"CC" validate:"dive,email"`
	SubjectTemplate      string   `yaml:"subject_template" envconfig:"SUBJECT_TEMPLATE"`
	From                 string   `yaml:"from" envconfig:"FROM" validate:"omitempty,email"`
	ReplyTo              string   `yaml:"reply_to" envconfig:"REPLY_TO" validate:"omitempty,email"`
	PostmarkServerToken  string   `yaml:"postmark_server_token" envconfig:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string   `yaml:"postmark_account_token" envconfig:"POSTMARK_ACCOUNT_TOKEN"`
	DevDir               string   `yaml:"dev_dir" envconfig:"DEV_DIR"`
}

// StorageConfig selects where uploads are kept
type StorageConfig struct {
	Backend  string   `yaml:"backend" envconfig:"BACKEND" validate:"oneof=local s3"`
	LocalDir string   `yaml:"local_dir" envconfig:"LOCAL_DIR"`
	S3       S3Config `yaml:"s3" envconfig:"S3"`
}

// S3Config contains the bucket settings of the s3 backend
type S3Config struct {
	Bucket         string `yaml:"bucket" envconfig:"BUCKET"`
	Region         string `yaml:"region" envconfig:"REGION"`
	Prefix         string `yaml:"prefix" envconfig:"PREFIX"`
	Endpoint       string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKeyID    string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretKey      string `yaml:"secret_key" envconfig:"SECRET_KEY"`
	ForcePathStyle bool   `yaml:"force_path_style" envconfig:"FORCE_PATH_STYLE"`
}

// TelemetryConfig contains OpenTelemetry exporter selection
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"omitempty,oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"omitempty,oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// SourcesConfig holds defaults for spreadsheet sources
type SourcesConfig struct {
	GoogleCredentialsFile string `yaml:"google_credentials_file" envconfig:"GOOGLE_CREDENTIALS_FILE"`
	DefaultFormat         string `yaml:"default_format" envconfig:"DEFAULT_FORMAT" validate:"omitempty,oneof=excel csv gsheet"`
}

// Load reads the configuration. Defaults are overlaid by the YAML file at
// path (or the first file found in the common locations when path is empty),
// then by SHEETCHECK_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("path", path)
		}
		cfg.Sources.GoogleCredentialsFile = ResolvePath(filepath.Dir(path), cfg.Sources.GoogleCredentialsFile)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks struct constraints and normalizes logging settings
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Storage.Backend == "s3" && (c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "") {
		return fmt.Errorf("storage.s3 bucket and region are required for the s3 backend")
	}
	if c.Notification.Enabled && c.Notification.Transport == "postmark" {
		if c.Notification.PostmarkServerToken == "" || c.Notification.From == "" {
			return fmt.Errorf("notification postmark transport requires a server token and a from address")
		}
	}
	return nil
}

// RuleSet converts the validation section into the rules handed to validators
func (c *Config) RuleSet() domain.RuleSet {
	v := c.Validation
	return domain.RuleSet{
		RequiredColumns:       append([]string(nil), v.RequiredColumns...),
		NonNullableColumns:    append([]string(nil), v.NonNullableColumns...),
		SkipColumns:           append([]string(nil), v.SkipColumns...),
		RankThreshold:         v.RankThreshold,
		FrequencySkipKeywords: append([]string(nil), v.FrequencySkipKeywords...),
	}
}

// RecurrenceSchedules converts the schedules section into domain schedules
func (c *Config) RecurrenceSchedules() []domain.RecurrenceSchedule {
	out := make([]domain.RecurrenceSchedule, 0, len(c.Schedules))
	for _, s := range c.Schedules {
		out = append(out, domain.RecurrenceSchedule{
			Subject:        s.Subject,
			Frequency:      domain.Frequency(s.Frequency),
			DeadlineDay:    s.DeadlineDay,
			DeadlineMonths: append([]int(nil), s.DeadlineMonths...),
			DeadlineMonth:  s.DeadlineMonth,
		})
	}
	return out
}

// Address returns the listen address of the HTTP server
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns default configuration
func Default() *Config {
	rules := domain.DefaultRuleSet()
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: DefaultLogFile,
		},
		Validation: ValidationConfig{
			SkipColumns:           rules.SkipColumns,
			RankThreshold:         rules.RankThreshold,
			FrequencySkipKeywords: rules.FrequencySkipKeywords,
		},
		Notification: NotificationConfig{
			Transport:       "log",
			BusinessUnit:    "Business Unit",
			SubjectTemplate: "Data Validation Alert - Missing Data Found",
			DevDir:          DefaultDevMailDir,
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: DefaultUploadDir,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Sources: SourcesConfig{
			DefaultFormat: "excel",
		},
	}
}
