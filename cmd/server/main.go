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

	"github.com/example/rapidryde/internal/config"
	"github.com/example/rapidryde/internal/dispatch"
	httpapi "github.com/example/rapidryde/internal/http"
	"github.com/example/rapidryde/internal/ingest"
	"github.com/example/rapidryde/internal/lifecycle"
	"github.com/example/rapidryde/internal/logging"
	"github.com/example/rapidryde/internal/ridestore"
	"github.com/example/rapidryde/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel, "rapidryde")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openKV(cfg, logger)
	if err != nil {
		logger.Error("storage unavailable", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer closeKV()

	wsreg := dispatch.NewWSRegistry()
	sinks := []dispatch.Sink{dispatch.LogSink{Logger: logger}, wsreg}
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		sinks = append(sinks, kp)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, dispatch.NewWebhookSink(cfg.WebhookURL))
	}

	store := ridestore.Open(ctx, kv, ridestore.Options{
		Delays: lifecycle.Delays{
			DriverAssigned: cfg.AssignedDelay,
			EnRoutePickup:  cfg.EnRouteDelay,
			ArrivedPickup:  cfg.ArrivedDelay,
		},
		RidesKey:   cfg.RidesKey,
		DriversKey: cfg.DriversKey,
		Notifier:   dispatch.NewFanout(logger, sinks...),
		Logger:     logger,
	})
	defer store.Close()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(store, wsreg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("rapidryde listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("rapidryde stopped")
}

func openKV(cfg config.ServerConfig, logger *slog.Logger) (storage.KV, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case "file":
		kv, err := storage.NewFileKV(cfg.StorageFile)
		return kv, noop, err
	case "redis":
		kv := storage.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix)
		if err := kv.Ping(context.Background()); err != nil {
			_ = kv.Close()
			return nil, noop, err
		}
		return kv, func() { _ = kv.Close() }, nil
	case "postgres":
		kv, err := storage.NewPostgresKV(cfg.PGDSN, cfg.RunMigrations)
		if err != nil {
			return nil, noop, err
		}
		if cfg.RunMigrations {
			logger.Info("migration applied", "table", "kv_store")
		}
		return kv, func() { _ = kv.Close() }, nil
	case "memory":
		return storage.NewMemoryKV(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
