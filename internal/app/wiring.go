package app

import (
	"context"
	"fmt"
	"log/slog"

	"sheetcheck/internal/config"
	"sheetcheck/internal/infrastructure"
	"sheetcheck/internal/notify"
	"sheetcheck/internal/storage"
	"sheetcheck/internal/workflow"
)

// BuildSender creates the notification transport selected by the config
func BuildSender(cfg config.NotificationConfig, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.Transport {
	case "postmark":
		sender, err := notify.NewPostmarkSender(notify.PostmarkConfig{
			ServerToken:  cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
			From:         cfg.From,
			ReplyTo:      cfg.ReplyTo,
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	case "dev":
		dir := cfg.DevDir
		if dir == "" {
			dir = config.DefaultDevMailDir
		}
		return notify.NewDevSender(dir), nil
	case "log", "":
		return notify.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}

// BuildNotifier returns the notifier of a run, or nil when notifications
// are disabled
func BuildNotifier(cfg config.NotificationConfig, logger *slog.Logger) (workflow.Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	sender, err := BuildSender(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification sender: %w", err)
	}
	return notify.NewNotifier(sender, notify.Settings{
		BusinessUnit:    cfg.BusinessUnit,
		Email:           cfg.Email,
		CC:              cfg.CC,
		SubjectTemplate: cfg.SubjectTemplate,
	}, logger), nil
}

// BuildStore creates the upload store selected by the config
func BuildStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			Prefix:         cfg.S3.Prefix,
			AccessKeyID:    cfg.S3.AccessKeyID,
			SecretKey:      cfg.S3.SecretKey,
			Endpoint:       cfg.S3.Endpoint,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		dir := cfg.LocalDir
		if dir == "" {
			dir = config.DefaultUploadDir
		}
		store, err := storage.NewLocalStore(dir, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// BuildWorkflow creates the validation workflow from the config. Extra
// options are applied after the configured ones.
func BuildWorkflow(cfg *config.Config, notifier workflow.Notifier, providers *infrastructure.OTelProviders, logger *slog.Logger, extra ...workflow.Option) (*workflow.Workflow, error) {
	tracer, err := workflow.NewRunTracer(providers)
	if err != nil {
		return nil, err
	}

	var opts []workflow.OrchestratorOption
	if cfg.Validation.Parallelism > 0 {
		opts = append(opts, workflow.WithParallelism(cfg.Validation.Parallelism))
	}

	wfOpts := []workflow.Option{
		workflow.WithTracer(tracer),
		workflow.WithOrchestrator(workflow.NewOrchestrator(logger, opts...)),
	}
	return workflow.New(cfg.RuleSet(), cfg.RecurrenceSchedules(), notifier, logger, append(wfOpts, extra...)...)
}
