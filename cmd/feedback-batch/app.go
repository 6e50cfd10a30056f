package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kursadbilgin/feedback-batch/internal/classifier"
	"github.com/kursadbilgin/feedback-batch/internal/config"
	"github.com/kursadbilgin/feedback-batch/internal/infra/postgresql"
	"github.com/kursadbilgin/feedback-batch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/feedback-batch/internal/infra/redis"
	"github.com/kursadbilgin/feedback-batch/internal/observability"
	"github.com/kursadbilgin/feedback-batch/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type appOptions struct {
	// limiter connects Redis when REDIS_URL is set.
	limiter bool
	// history connects Postgres when DATABASE_DSN is set.
	history bool
}

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
	client     *classifier.Client
	dispatcher *classifier.Dispatcher
	sqlDB      *sql.DB
	rdb        *redis.Client
	runs       repository.RunRepository
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
	}

	a.client, err = classifier.NewClient(cfg.ClassifierBaseURL)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.dispatcher, err = classifier.NewDispatcher(a.client, classifier.DispatcherOptions{
		Timeout:    cfg.RequestTimeout(),
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher.SetMetrics(a.metrics)

	if opts.limiter && cfg.RedisURL != "" {
		a.rdb, err = infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis initialization failed: %w", err)
		}

		limiter, err := infraredis.NewWindowLimiter(a.rdb, cfg.ClassifierBaseURL, cfg.RateLimitPerSec)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.dispatcher.SetRateLimiter(limiter)
		logger.Debug("redis rate limiter enabled", zap.Int("limitPerSec", cfg.RateLimitPerSec))
	}

	if opts.history && cfg.DatabaseDSN != "" {
		db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres initialization failed: %w", err)
		}

		a.sqlDB, err = db.DB()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres underlying db init failed: %w", err)
		}

		if err := migrations.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		a.runs = repository.NewGormRunRepo(db)
		logger.Debug("run history enabled")
	}

	return a, nil
}

func (a *app) Close() {
	if a == nil {
		return
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
