package main

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

	"github.com/go-phone-verify/internal/application/verification"
	"github.com/go-phone-verify/internal/backend"
	"github.com/go-phone-verify/internal/config"
	transporthttp "github.com/go-phone-verify/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	b, err := backend.New(cfg.PhoneVerification, backend.WithLogger(logger))
	if err != nil {
		logger.Error("phone verification backend not available", "err", err)
		os.Exit(1)
	}

	store, closeStore, err := newSessionStore(context.Background(), cfg)
	if err != nil {
		logger.Error("session store not available", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	svc := verification.NewService(verification.ServiceDeps{
		Backend: b,
		Store:   store,
		Options: cfg.PhoneVerification.Options,
		Logger:  logger,
	})
	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Verification: svc,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"port", cfg.AppPort, "env", cfg.AppEnv,
			"backend", b.Name(), "sandbox", b.Sandbox(), "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "err", err)
		return
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
