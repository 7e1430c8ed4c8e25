package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vocalize-ai/vocalize-backend/internal/cron"
	"github.com/vocalize-ai/vocalize-backend/internal/ledger"
	"github.com/vocalize-ai/vocalize-backend/internal/usage"
	"github.com/vocalize-ai/vocalize-backend/pkg/config"
	"github.com/vocalize-ai/vocalize-backend/pkg/db"
	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
	"github.com/vocalize-ai/vocalize-backend/pkg/metrics"
	"github.com/vocalize-ai/vocalize-backend/pkg/migrate"
	"github.com/vocalize-ai/vocalize-backend/pkg/redis"
)

const lockKeyFormat = "vocalize:sweep-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweep-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var seeds []ledger.Record
	if cfg.FeatureFlags.SeedLedger {
		seeds = ledger.DefaultSeeds()
	}
	tokenLedger, err := ledger.New(context.Background(), ledger.Options{
		Store:      kvstore.NewGormStore(dbClient.DB()),
		Logger:     logg,
		StorageKey: cfg.Ledger.StorageKey,
		Seeds:      seeds,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create token ledger", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewLedgerSweepJob(cron.LedgerSweepJobParams{
		Ledger: tokenLedger,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger sweep job", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewUsageReconcileJob(cron.UsageReconcileJobParams{
		Repo:   usage.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage reconcile job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, reconcileJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Ledger.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sweep worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweep worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
