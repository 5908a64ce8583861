package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sheetcheck/internal/app"
	"sheetcheck/internal/config"
	"sheetcheck/internal/exporter"
	"sheetcheck/internal/infrastructure"
	"sheetcheck/internal/loader"
	"sheetcheck/internal/validation"
	"sheetcheck/internal/workflow"
	"sheetcheck/pkg/contracts"
	"sheetcheck/pkg/contracts/domain"
)

const formatGoogleSheets = "gsheet"

// Exit codes
const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

type options struct {
	configPath string
	sheet      string
	format     string
	notify     bool
	date       time.Time
	verbose    bool
	jsonOutput bool
	export     string
	source     string
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one validation run and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitValid
		}
		fmt.Fprintln(stderr, "sheetcheck:", err)
		return exitError
	}
	if opts == nil {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitValid
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "sheetcheck:", err)
		return exitError
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.notify {
		cfg.Notification.Enabled = true
	}
	// a one-shot process has no scrape endpoint
	cfg.Telemetry.MetricExporter = "none"

	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "sheetcheck:", err)
		return exitError
	}
	defer infrastructure.CloseLogFile()

	result, err := validate(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("Validation could not start", slog.String("error", err.Error()))
		fmt.Fprintln(stderr, "sheetcheck:", err)
		return exitError
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintln(stderr, "sheetcheck:", err)
		}
	} else {
		printSummary(stdout, result)
	}

	if opts.export != "" {
		if err := exporter.NewReportExporter(logger).Export(opts.export, result); err != nil {
			fmt.Fprintln(stderr, "sheetcheck: export failed:", err)
			return exitError
		}
	}

	if result.Status == domain.RunStatusFailed || result.Report == nil || !result.Report.IsValid {
		return exitInvalid
	}
	return exitValid
}

// parseArgs returns nil options when only the version was requested
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sheetcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: sheetcheck [flags] <file.xlsx|file.csv|spreadsheet-id>")
		fs.PrintDefaults()
	}

	var (
		opts    options
		date    string
		version bool
	)
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	fs.StringVar(&opts.sheet, "sheet", "", "validate only this sheet (default: every sheet)")
	fs.StringVar(&opts.format, "format", "", "source format: excel, csv or gsheet (default: from the file extension)")
	fs.BoolVar(&opts.notify, "notify", false, "send the run notification even when disabled in the configuration")
	fs.StringVar(&date, "date", "", "evaluate schedules as of this date (YYYY-MM-DD)")
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print the full run result as JSON")
	fs.StringVar(&opts.export, "export", "", "also write the result to this .csv, .xlsx or .json file")
	fs.BoolVar(&version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if version {
		return nil, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one source is required")
	}
	opts.source = fs.Arg(0)

	switch opts.format {
	case "", loader.FormatExcel, loader.FormatCSV, formatGoogleSheets:
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}

	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", date)
		}
		opts.date = d
	}
	return &opts, nil
}

// newLogger writes logs to stderr unless a log file is configured, so that
// stdout carries only the run summary
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, error) {
	switch cfg.Output {
	case "file", "both":
		return infrastructure.InitializeLogger(cfg)
	default:
		return infrastructure.NewLogger(stderr, cfg.Level), nil
	}
}

// resolveFormat picks the source format: the flag, then the file extension,
// then the configured default
func resolveFormat(flagFormat, source, defaultFormat string) string {
	if flagFormat != "" {
		return flagFormat
	}
	if format, err := loader.FormatFromFilename(source); err == nil {
		return format
	}
	if defaultFormat != "" {
		return defaultFormat
	}
	return loader.FormatExcel
}

func openSource(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger) (loader.Source, error) {
	format := resolveFormat(opts.format, opts.source, cfg.Sources.DefaultFormat)
	logger.Debug("Opening source",
		slog.String("source", opts.source),
		slog.String("format", format))

	if format == formatGoogleSheets {
		src, err := loader.NewSheetsLoader(ctx, opts.source, cfg.Sources.GoogleCredentialsFile, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	fv := validation.NewFileValidator(logger)
	if opts.format == "" {
		// the extension decides the loader, so it must name a spreadsheet
		if _, err := fv.ValidateWorkbookFile(opts.source); err != nil {
			return nil, err
		}
	} else if err := fv.ValidateFile(opts.source); err != nil {
		return nil, err
	}
	return loader.Open(opts.source, format, logger)
}

func validate(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger) (domain.RunResult, error) {
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}()

	if opts.export != "" {
		if err := validation.NewFileValidator(logger).ValidateOutputDirectory(filepath.Dir(opts.export)); err != nil {
			return domain.RunResult{}, err
		}
	}

	notifier, err := app.BuildNotifier(cfg.Notification, logger)
	if err != nil {
		return domain.RunResult{}, err
	}

	var extra []workflow.Option
	if !opts.date.IsZero() {
		start := time.Now()
		asOf := opts.date
		extra = append(extra, workflow.WithClock(func() time.Time {
			return asOf.Add(time.Since(start))
		}))
	}

	wf, err := app.BuildWorkflow(cfg, notifier, providers, logger, extra...)
	if err != nil {
		return domain.RunResult{}, err
	}

	src, err := openSource(ctx, cfg, opts, logger)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("failed to open %s: %w", opts.source, err)
	}
	defer src.Close()

	return wf.RunWorkbook(ctx, opts.source, src, opts.sheet), nil
}

func printSummary(w io.Writer, result domain.RunResult) {
	fmt.Fprintf(w, "Source:       %s\n", result.Source)
	fmt.Fprintf(w, "Run:          %s (%s)\n", result.RunID, result.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Status:       %s\n", result.Status)
	if result.Error != "" {
		fmt.Fprintf(w, "Error:        %s\n", result.Error)
	}

	if report := result.Report; report != nil {
		fmt.Fprintf(w, "Sheets:       %d processed, %d errors\n",
			report.Summary.SheetsProcessed, report.Summary.TotalErrors)
		for _, t := range report.Tables {
			switch {
			case t.Failed():
				fmt.Fprintf(w, "  %-20s failed: %s\n", t.TableID, t.Failure)
			case t.IsValid:
				fmt.Fprintf(w, "  %-20s valid (%d rows)\n", t.TableID, t.Summary.TotalRows)
			default:
				fmt.Fprintf(w, "  %-20s invalid (%d of %d rows with errors)\n",
					t.TableID, t.Summary.ErrorRows, t.Summary.TotalRows)
				if len(t.Summary.MissingRequiredColumns) > 0 {
					fmt.Fprintf(w, "  %-20s missing columns: %s\n", "",
						strings.Join(t.Summary.MissingRequiredColumns, ", "))
				}
			}
		}
		if report.PeriodicTrigger {
			fmt.Fprintf(w, "Due:          %s\n", strings.Join(report.DueSchedules, ", "))
		}
	}

	sent := "not sent"
	if result.NotificationSent {
		sent = "sent"
	}
	if result.Decision != "" {
		fmt.Fprintf(w, "Notification: %s (%s)\n", result.Decision, sent)
	}
}
