package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tradepulse/internal/config"
	apierrors "tradepulse/internal/errors"
	"tradepulse/internal/infrastructure"
	custommiddleware "tradepulse/internal/middleware"
	"tradepulse/internal/services"
	handlers "tradepulse/internal/transport/http"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Application is the main application container.
type Application struct {
	Config   *config.Config
	Router   *chi.Mux
	Server   *http.Server
	Pipeline *services.PipelineService
	Metrics  *infrastructure.Metrics
	Logger   *slog.Logger
}

// NewApplication builds the application with all dependencies wired.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	metrics := infrastructure.NewMetrics()

	pipeline, err := services.NewPipelineService(cfg, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline service: %w", err)
	}

	app := &Application{
		Config:   cfg,
		Pipeline: pipeline,
		Metrics:  metrics,
		Logger:   logger,
	}
	app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// Metrics stay outside the middleware group: no auth, no rate limit,
	// no per-request logging noise from the scraper.
	r.Handle("/metrics", a.Metrics.Handler())

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.StructuredLogger(a.Logger))
		r.Use(custommiddleware.Recoverer(a.Logger))
		r.Use(custommiddleware.SecurityHeaders)
		r.Use(custommiddleware.CORS(custommiddleware.CORSConfig{
			AllowedOrigins: a.Config.Server.AllowedOrigins,
		}))
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(custommiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		}
		if a.Config.Server.RateLimitRPS > 0 {
			r.Use(custommiddleware.NewRateLimiter(
				a.Config.Server.RateLimitRPS,
				a.Config.Server.RateLimitBurst,
				a.Logger,
			).Handler)
		}
		r.Use(custommiddleware.BasicAuth(a.Config.Auth, a.Logger))

		r.Route("/api", func(r chi.Router) {
			r.Mount("/health", handlers.NewHealthHandler(Version).Routes())
			r.Mount("/dataset", handlers.NewDatasetHandler(a.Pipeline, a.Logger, errorHandler, a.Config.Pipeline.MaxUploadBytes).Routes())
			r.Mount("/pipeline", handlers.NewPipelineHandler(a.Pipeline, a.Logger, errorHandler).Routes())
			r.Mount("/export", handlers.NewExportHandler(a.Pipeline, a.Logger, errorHandler).Routes())
		})

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	})

	a.Router = r
}

// Start begins serving; it returns once the listener fails or is shut down.
func (a *Application) Start() error {
	a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
	if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.Start()
	}()

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
		return a.Stop(ctx)
	case err := <-errChan:
		return err
	}
}
