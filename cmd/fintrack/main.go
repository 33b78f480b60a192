package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentApp, applog.Config{Level: slog.LevelInfo})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	// A corrupt snapshot is fatal: starting from an empty store would
	// silently discard the user's data.
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open snapshot store",
			applog.FieldError, err, applog.FieldDBPath, cfg.DBPath)
		os.Exit(1)
	}
	defer store.Close()

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)

	srv := apphttp.NewServer(":"+cfg.Port, store, tokens, apphttp.Options{
		BcryptCost: cfg.BcryptCost,
		CORSOrigin: cfg.CORSOrigin,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// The worker drains on its own context, cancelled only once the server
	// has finished in-flight requests, so every acknowledged write reaches
	// the final snapshot.
	flushCtx, stopFlush := context.WithCancel(context.Background())
	defer stopFlush()

	g.Go(func() error {
		return worker.NewFlushWorker(store, cfg.FlushInterval).Run(flushCtx)
	})

	g.Go(func() error {
		logger.Info("Starting fintrack server",
			applog.FieldPort, cfg.Port,
			applog.FieldDBPath, cfg.DBPath,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopFlush()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
