package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dog-marker/internal/config"
	"dog-marker/internal/database"
	"dog-marker/internal/event"
	"dog-marker/internal/handler"
	"dog-marker/internal/logger"
	"dog-marker/internal/middleware"
	"dog-marker/internal/queue"
	"dog-marker/internal/reconciler"
	"dog-marker/internal/repository"
	"dog-marker/internal/router"
	"dog-marker/internal/scheduler"
	"dog-marker/internal/service"
)

type App struct {
	server       *http.Server
	scheduler    *scheduler.Scheduler
	bus          event.Bus
	logger       *slog.Logger
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	db, err := database.Open(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DBMigrate {
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
	}

	store := repository.NewStore(db.Gorm)
	log.Info("database ready", "dialect", db.Dialect)

	bus := event.NewBus(log)
	lifecycle := service.NewLifecycleService(store, bus, log)
	entryService := service.NewEntryService(store, lifecycle, bus)
	categoryService := service.NewCategoryService(store)
	authService := service.NewAuthService(cfg.JWTSecret)

	sched := scheduler.New(scheduler.Config{
		ExecInterval:    cfg.TaskExecInterval,
		CleanupInterval: cfg.CleanupInterval,
		Retention:       cfg.TrashRetention,
	}, lifecycle, reconciler.New(cfg.ImageHostTimeout, log), queue.New(), bus, log)

	appRouter := router.New(cfg, log, middleware.NewAuthMiddleware(authService), router.Handlers{
		Entry:    handler.NewEntryHandler(entryService),
		Category: handler.NewCategoryHandler(categoryService),
		Health:   handler.NewHealthHandler(db),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:    server,
		scheduler: sched,
		bus:       bus,
		logger:    log,
		cleanupFuncs: []func(){
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	background, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go event.Listen(background, a.bus, a.logEvent)

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- a.scheduler.Run(background)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		a.logger.Info("shutdown requested", "signal", sig.String())
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	case err := <-schedulerDone:
		runErr = fmt.Errorf("scheduler stopped: %w", err)
		schedulerDone <- nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	stopBackground()
	select {
	case <-schedulerDone:
	case <-ctx.Done():
		a.logger.Warn("scheduler did not stop in time")
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	a.logger.Info("server stopped")
	return runErr
}

func (a *App) logEvent(e event.Event) {
	level := slog.LevelDebug
	switch e.Type {
	case event.TypeTaskFailed, event.TypeImageUnreachable:
		level = slog.LevelWarn
	case event.TypeEntryPurged, event.TypeEntryMarked:
		level = slog.LevelInfo
	}
	a.logger.Log(context.Background(), level, "event", "type", e.Type, "payload", e.Payload, "actor_id", e.ActorID)
}
