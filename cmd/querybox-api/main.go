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

	"github.com/querybox/querybox/internal/api"
	"github.com/querybox/querybox/internal/auth"
	"github.com/querybox/querybox/internal/config"
	"github.com/querybox/querybox/internal/observability"
	"github.com/querybox/querybox/internal/sandbox"
)

func main() {
	cfg, err := config.LoadFromEnv("querybox-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	sandboxService := &sandbox.Service{
		Logger:         observability.ComponentLogger(logger, "sandbox"),
		DefaultTimeout: cfg.Sandbox.DefaultTimeout,
	}

	deps := api.Dependencies{
		Logger:            logger,
		Sandbox:           sandboxService,
		MaxRequestRows:    cfg.Sandbox.MaxRequestRows,
		MaxTimeout:        cfg.Sandbox.MaxTimeout,
		SampleRows:        cfg.Examples.SampleRows,
		Readiness:         api.CheckSandboxEngine(sandbox.OpenInMemoryEngine),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = func(next http.Handler) http.Handler {
			return auth.Middleware(logger, validator)(auth.RequireRole(auth.RoleQueryRunner)(next))
		}
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
