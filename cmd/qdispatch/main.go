// Command qdispatch runs the task-queue service: an HTTP submission and
// retrieval API in front of an in-process worker cluster, backed by an
// in-memory broker and either PostgreSQL or an in-memory record store.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"qdispatch/internal/api"
	"qdispatch/internal/broker"
	"qdispatch/internal/codec"
	"qdispatch/internal/config"
	"qdispatch/internal/platform/logger"
	"qdispatch/internal/platform/postgres"
	"qdispatch/internal/queue"
	"qdispatch/internal/store"
	"qdispatch/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server.LogLevel)
	log.Info("starting qdispatch",
		"port", cfg.Server.Port,
		"workers", cfg.Queue.Workers,
		"durable", cfg.Database.URL != "")

	st, closeStore, err := setupStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	signer, err := codec.New(cfg.Signing.Secret)
	if err != nil {
		return fmt.Errorf("failed to initialize codec: %w", err)
	}

	b := broker.NewMemory(cfg.Queue.ListKey, cfg.Queue.QueueSize)
	defer b.Close()

	// Task functions and hooks are registered here before the cluster starts.
	registry := worker.NewRegistry()
	registerBuiltins(registry)

	client := queue.New(queue.Defaults{
		Cached: cfg.Queue.Cached,
		Sync:   cfg.Queue.Sync,
		Save:   cfg.Queue.Save,
	}, b, st, signer, registry, log)

	cluster := queue.NewCluster(client, cfg.Queue.Workers, log)
	cluster.Start()
	defer cluster.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(client, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(server, log)
}

// setupStore selects the durable store: PostgreSQL when a database URL is
// configured, otherwise in-memory.
func setupStore(cfg *config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory record store")
		return store.NewMemory(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("database connection established")
	return postgres.NewTaskStore(db), func() { _ = db.Close() }, nil
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts it down
// gracefully.
func serve(server *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-shutdownCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// registerBuiltins installs the handful of functions the service ships with.
// Deployments embedding qdispatch as a library register their own.
func registerBuiltins(registry *worker.Registry) {
	registry.Register("builtin.echo", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		if len(args) == 1 {
			return args[0], nil
		}
		return args, nil
	})
	registry.Register("builtin.sleep", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		ms, _ := args[0].(float64)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return ms, nil
		}
	})
}
