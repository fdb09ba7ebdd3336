package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/freshroute-backend/internal/cron"
	"github.com/angelmondragon/freshroute-backend/internal/lifecycle"
	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/config"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/instance"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/metrics"
	"github.com/angelmondragon/freshroute-backend/pkg/migrate"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/redis"
)

const lockNameFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(cron.LockParams{
		Client:   redisClient,
		Key:      redisClient.LockKey(lockName(cfg.App.Env)),
		Instance: instance.ID(),
		TTL:      cfg.Lifecycle.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Lifecycle.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})
	logg.Info(logg.WithField(ctx, "lock_key", lock.Key()), "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// lockName scopes the sweep lock per environment.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	clk := clock.Real()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)
	lifecycleMetrics := metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer)

	writer, err := stock.NewWriter(lifecycle.New(lifecycleMetrics), emitter, clk, logg)
	if err != nil {
		return nil, err
	}
	transitioner, err := orders.NewTransitioner(writer, emitter, clk)
	if err != nil {
		return nil, err
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(conn),
		Tx:           dbClient,
		Writer:       writer,
		Transitioner: transitioner,
		Outbox:       emitter,
		Clock:        clk,
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}

	sweep, err := cron.NewExpirationSweepJob(cron.ExpirationSweepJobParams{
		Logger:     logg,
		DB:         dbClient,
		Candidates: stock.NewRepository(conn),
		Writer:     writer,
		Clock:      clk,
		Metrics:    lifecycleMetrics,
		BatchSize:  cfg.Lifecycle.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewPendingOrderExpiryJob(cron.PendingOrderExpiryJobParams{
		Logger: logg,
		Orders: orderSvc,
		Clock:  clk,
		TTL:    cfg.Lifecycle.PendingOrderTTL,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Clock:      clk,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(sweep, expiry, retention), nil
}
