package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"phone-pos/internal/config"
	"phone-pos/internal/logger"
	"phone-pos/internal/server"
	"phone-pos/internal/service"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight sales get 30 seconds to finish their compensations.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting phone-pos API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.Strings("stores", cfg.Store.Names),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backends, err := server.OpenBackends(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal("Failed to open backends", zap.Error(err))
	}

	settings := service.NewSettingsService(backends.Repos.Settings, log)
	if err := settings.ApplyDefaults(ctx, cfg.Sales.DefaultExchangeRate, cfg.Sales.PointValue, cfg.Sales.EarnRate); err != nil {
		log.Warn("Could not apply default settings", zap.Error(err))
	}
	cancel()

	srv := server.NewServer(cfg, log, backends)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
