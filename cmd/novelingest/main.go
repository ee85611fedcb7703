// Package main runs the ingestion API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quillhaven/novelingest/internal/api"
	"github.com/quillhaven/novelingest/internal/config"
	"github.com/quillhaven/novelingest/internal/coordinator"
	"github.com/quillhaven/novelingest/internal/ingest"
	"github.com/quillhaven/novelingest/internal/logging"
	"github.com/quillhaven/novelingest/internal/queue"
	"github.com/quillhaven/novelingest/internal/router"
	memstore "github.com/quillhaven/novelingest/internal/storage/memory"
	"github.com/quillhaven/novelingest/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs, library, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer cleanup()

	jobQueue := queue.NewRedis(queue.RedisConfig{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
		Key:  cfg.Redis.Key,
	})
	defer func() {
		_ = jobQueue.Close()
	}()

	coord, err := coordinator.New(coordinator.Config{
		Router:  router.New(router.DefaultTable()),
		Jobs:    jobs,
		Queue:   jobQueue,
		Library: library,
		Logger:  logger.Named("coordinator"),
	})
	if err != nil {
		logger.Fatal("coordinator init failed", zap.Error(err))
	}

	apiServer := api.NewServer(coord, library, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (ingest.JobStore, ingest.LibraryStore, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("db.dsn not set, using in-memory stores")
		return memstore.NewJobStore(nil), memstore.NewLibraryStore(nil), func() {}, nil
	}
	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	jobs, err := postgres.NewJobStore(pool, nil)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	library, err := postgres.NewLibraryStore(pool, nil)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return jobs, library, pool.Close, nil
}
