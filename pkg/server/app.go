package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	drepo "ScanDesk/internal/domain/repository"
	"ScanDesk/internal/handler/ws"
	mid "ScanDesk/internal/middleware"
	"ScanDesk/internal/usecase"
	"ScanDesk/pkg/config"
	xhttp "ScanDesk/pkg/http"
	"ScanDesk/pkg/kvstore"
	applogger "ScanDesk/pkg/logger"
)

// App encapsulates the application lifecycle. The HTTP server and the
// websocket hub are optional; console commands run without them.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	dash       *usecase.Dashboard
	httpServer *xhttp.Server
	hub        *ws.Hub
	pipeline   *mid.JournalPipeline
	journal    *usecase.JournalProcessor
	store      kvstore.Store
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	pipeline *mid.JournalPipeline,
	journal *usecase.JournalProcessor,
	store kvstore.Store,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        l,
		dash:       dash,
		httpServer: httpServer,
		hub:        hub,
		pipeline:   pipeline,
		journal:    journal,
		store:      store,
	}
}

func (a *App) Dashboard() *usecase.Dashboard { return a.dash }

func (a *App) Logger() *applogger.Logger { return a.log }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(ctx)
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.Shutdown(ctx)
}

// Serve brings up the journal pipeline and, when configured, the HTTP
// server. The dashboard is left idle.
func (a *App) Serve(ctx context.Context) error {
	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.log.Info("journal pipeline started", applogger.String("backend", a.cfg.Journal.Backend))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
	}
	return nil
}

// Start serves, then runs the dashboard start sequence. An unreachable
// license server is not fatal: the dashboard stays up so the key can be
// re-checked later.
func (a *App) Start(ctx context.Context) error {
	if err := a.Serve(ctx); err != nil {
		return err
	}

	decision, err := a.dash.Start(ctx)
	switch {
	case errors.Is(err, drepo.ErrUnreachable):
		a.log.Warn("license server unreachable", applogger.Error(err))
	case err != nil:
		return fmt.Errorf("dashboard start: %w", err)
	default:
		a.log.Info("license checked",
			applogger.String("state", string(decision.State)),
			applogger.Bool("authorized", decision.Authorized),
		)
	}
	return nil
}

// Shutdown stops the scheduler and any live scan, then releases the
// transport and storage resources in reverse order of start.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	a.dash.Close()

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	// Close journal backend (publisher/storage)
	if a.journal != nil {
		a.journal.Close()
	}

	var err error
	if a.store != nil {
		if err = a.store.Close(); err != nil {
			a.log.Warn("store close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return err
}
