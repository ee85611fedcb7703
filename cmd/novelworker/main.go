// Package main runs the ingestion worker pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quillhaven/novelingest/internal/config"
	"github.com/quillhaven/novelingest/internal/executor"
	"github.com/quillhaven/novelingest/internal/extractor"
	"github.com/quillhaven/novelingest/internal/ingest"
	"github.com/quillhaven/novelingest/internal/logging"
	"github.com/quillhaven/novelingest/internal/queue"
	memstore "github.com/quillhaven/novelingest/internal/storage/memory"
	"github.com/quillhaven/novelingest/internal/storage/postgres"
	"github.com/quillhaven/novelingest/internal/worker"
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

	fetcher := extractor.NewPageFetcher(extractor.FetcherConfig{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout(),
	})
	registry, err := extractor.NewDefaultRegistry(fetcher)
	if err != nil {
		logger.Fatal("extractor registry init failed", zap.Error(err))
	}

	exec, err := executor.New(executor.Config{
		Jobs:       jobs,
		Library:    library,
		Extractors: registry,
		Logger:     logger.Named("executor"),
		JobTimeout: cfg.Worker.JobTimeout(),
	})
	if err != nil {
		logger.Fatal("executor init failed", zap.Error(err))
	}

	logger.Info("worker pool started",
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.Duration("job_timeout", cfg.Worker.JobTimeout()))
	worker.NewDispatcher(cfg.Worker.Concurrency, jobQueue, exec, logger.Named("worker")).Run(ctx)
	logger.Info("worker pool stopped")
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
