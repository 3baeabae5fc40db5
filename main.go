package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/taskboard-GO/internal/config"
	"github.com/s1natex/taskboard-GO/internal/middleware"
	"github.com/s1natex/taskboard-GO/internal/tasks"
	"github.com/s1natex/taskboard-GO/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "taskboard", cfg.OTelExporter, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	repo, closeRepo, err := openRepo(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeRepo()

	r, err := newRouter(cfg, repo, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Addr), slog.String("store", storeKind(cfg.DBPath)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRepo returns SQLite storage when path is set, memory otherwise.
func openRepo(ctx context.Context, path string) (tasks.Repository, func(), error) {
	if path == "" {
		return tasks.NewInMemoryRepo(), func() {}, nil
	}
	dsn, err := tasks.SQLiteFileDSN(path)
	if err != nil {
		return nil, nil, fmt.Errorf("db path: %w", err)
	}
	repo, err := tasks.NewSQLiteRepo(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := repo.ApplyMigrations(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

func storeKind(path string) string {
	if path == "" {
		return "memory"
	}
	return "sqlite"
}

// newRouter wires the health and metrics endpoints, task routes, and middleware stack
func newRouter(cfg config.Server, repo tasks.Repository, logger *slog.Logger) (*chi.Mux, error) {
	mode, err := middleware.ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// RequestID first so the logger and error responses can carry it
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id", "traceparent"},
		ExposedHeaders:   []string{"X-Request-Id", "Trace-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}

	r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Mode:        mode,
		APIKey:      cfg.APIKey,
		BearerToken: cfg.BearerToken,
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	tasks.RegisterRoutes(r, repo, logger)

	return r, nil
}
