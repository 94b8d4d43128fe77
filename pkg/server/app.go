package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"FinFolio/internal/handler/api"
	"FinFolio/internal/usecase"
	"FinFolio/pkg/config"
	xhttp "FinFolio/pkg/http"
	applogger "FinFolio/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// App encapsulates the application lifecycle: a one-shot run or the HTTP API.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	svc      *usecase.PortfolioService
	registry *prometheus.Registry
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, svc *usecase.PortfolioService, registry *prometheus.Registry) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{cfg: cfg, log: log, svc: svc, registry: registry}
}

// Generate runs the pipeline once for request.
func (a *App) Generate(ctx context.Context, request string) *usecase.Result {
	a.log.Info("starting portfolio run", applogger.Int("request_chars", len(request)))
	res := a.svc.Generate(ctx, request)
	a.log.Info("portfolio run finished",
		applogger.String("run_id", res.State.RunID),
		applogger.String("status", res.Status),
		applogger.String("step", res.State.Step.String()),
		applogger.Int("transitions", res.State.Transitions),
		applogger.String("output_dir", res.OutputDir),
	)
	return res
}

// Serve runs the HTTP API until ctx is done or SIGINT/SIGTERM arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled && a.registry != nil {
		opts = append(opts, xhttp.WithMetrics(a.registry, a.cfg.Metrics.Path))
	}
	srv := xhttp.NewServer(api.NewPortfolioEchoHandler(a.log, a.svc), a.log, opts...)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	a.log.Info("serving portfolio API",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("env", a.cfg.Environment),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case serveErr = <-srv.Err():
	}

	if err := srv.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	a.log.Info("shutdown complete")
	return nil
}
