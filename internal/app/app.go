package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sheetcheck/internal/config"
	apierrors "sheetcheck/internal/errors"
	"sheetcheck/internal/infrastructure"
	customMiddleware "sheetcheck/internal/middleware"
	"sheetcheck/internal/services"
	"sheetcheck/internal/storage"
	transport "sheetcheck/internal/transport/http"
	"sheetcheck/internal/workflow"
	"sheetcheck/pkg/contracts"
)

// Application is the validation API server
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ValidationMetrics
	Store         storage.Store
	Workflow      *workflow.Workflow
	Services      *ServiceContainer

	errorHandler *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Validation *services.ValidationService
	Health     *services.HealthService
}

// Dependencies lets callers supply pre-built components. Nil fields are
// built from the configuration.
type Dependencies struct {
	Store         storage.Store
	Notifier      workflow.Notifier
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication creates the application from cfg
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps Dependencies) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: deps.OTelProviders,
		Store:         deps.Store,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if a.OTelProviders == nil {
		providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		a.OTelProviders = providers
	}

	metrics, err := infrastructure.CreateValidationMetrics(a.OTelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Metrics = metrics

	if err := a.initializeServices(ctx, deps.Notifier); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices builds the store, workflow and services
func (a *Application) initializeServices(ctx context.Context, notifier workflow.Notifier) error {
	if a.Store == nil {
		store, err := BuildStore(ctx, a.Config.Storage, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create upload store: %w", err)
		}
		a.Store = store
	}

	if notifier == nil {
		n, err := BuildNotifier(a.Config.Notification, a.Logger)
		if err != nil {
			return err
		}
		notifier = n
	}

	wf, err := BuildWorkflow(a.Config, notifier, a.OTelProviders, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	a.Workflow = wf

	a.Services = &ServiceContainer{
		Validation: services.NewValidationService(a.Store, wf, a.Logger),
		Health:     services.NewHealthService(a.Store, a.Logger),
	}

	a.Logger.InfoContext(ctx, "Services initialized",
		slog.String("storage_backend", a.Config.Storage.Backend),
		slog.Bool("notifications_enabled", a.Config.Notification.Enabled),
		slog.String("notification_transport", a.Config.Notification.Transport),
		slog.Int("schedules", len(a.Config.Schedules)))
	return nil
}

// setupRouter configures middleware and routes.
// Ordering: RequestID → RealIP → OTel → Logger → Recoverer
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	if otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics); err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apierrors.RecoveryMiddleware(a.errorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	healthHandler := transport.NewHealthHandler(a.Services.Health, a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/readyz", healthHandler.ReadinessCheck)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout))

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
				a.errorHandler,
			).Handler)
		}

		r.Get("/version", healthHandler.Version)

		validationHandler := transport.NewValidationHandler(
			a.Services.Validation,
			a.Config.Server.MaxUploadBytes,
			a.Logger,
			a.errorHandler,
		)
		r.Mount("/", validationHandler.Routes())
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving in the background. A listener failure cancels the
// application context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("address", ln.Addr().String()),
		slog.String("version", contracts.Version),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx := ctx
	if a.Config.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		defer cancel()
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until SIGINT, SIGTERM or a server failure
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
