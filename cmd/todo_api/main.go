package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_api/internal/auth"
	"todo_api/internal/config"
	"todo_api/internal/http_server/handlers/health"
	"todo_api/internal/http_server/router"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/rabbitmq"
	"todo_api/internal/storage/memory"
	"todo_api/internal/storage/mongodb"
	"todo_api/internal/todos"
)

const (
	envLocal = "local"
	envTest  = "test"
	envDev   = "dev"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type store interface {
	auth.UserSaver
	auth.UserProvider
	todos.Storage
	health.Pinger
	Close()
}

type notifier interface {
	auth.NoticeSender
	Close()
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting todo api", slog.String("env", cfg.Env), slog.String("version", version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := setupStorage(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to connect storage", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	msgBroker, err := setupNotifier(cfg.RabbitMQ)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(log, storage, storage, msgBroker, cfg.Tokens.Secret, cfg.Tokens.TTL)
	todoService := todos.New(log, storage)

	r := router.New(log, authService, todoService, storage, router.Options{
		Env:         cfg.Env,
		Version:     version,
		RateLimit:   cfg.HTTPServer.RateLimit,
		AuthTimeout: cfg.Storage.Timeout,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      r,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}
}

func setupStorage(ctx context.Context, cfg config.Storage) (store, error) {
	if cfg.Driver == config.DriverMemory {
		return memory.New(), nil
	}

	return mongodb.New(ctx, cfg)
}

// setupNotifier falls back to a no-op publisher when no broker is configured.
func setupNotifier(cfg config.RabbitMQ) (notifier, error) {
	if cfg.URL == "" {
		return rabbitmq.Nop{}, nil
	}

	return rabbitmq.New(cfg.URL, cfg.QueueName)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envTest:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
