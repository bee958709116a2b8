package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/calebmonroy/storefront-backend/internal/abandoned"
	"github.com/calebmonroy/storefront-backend/internal/cron"
	"github.com/calebmonroy/storefront-backend/internal/email"
	"github.com/calebmonroy/storefront-backend/internal/notifications"
	"github.com/calebmonroy/storefront-backend/internal/users"
	"github.com/calebmonroy/storefront-backend/pkg/config"
	"github.com/calebmonroy/storefront-backend/pkg/db"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/metrics"
	"github.com/calebmonroy/storefront-backend/pkg/migrate"
	"github.com/calebmonroy/storefront-backend/pkg/redis"
)

const lockKeyFormat = "sf:cron-worker:lock:%s:%s"

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

	settingsService, err := abandoned.NewSettingsService(abandoned.NewSettingsRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(
		notifications.NewRepository(dbClient.DB()),
		notifications.NewPusher(redisClient, logg),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	sender, err := email.NewSMTPSender(cfg.SMTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create smtp sender", err)
		os.Exit(1)
	}

	cartRepo := abandoned.NewCartRepository(dbClient.DB())
	snapshotRepo := abandoned.NewSnapshotRepository(dbClient.DB())

	reminderSweep, err := abandoned.NewReminderSweep(abandoned.ReminderSweepParams{
		Logger:    logg,
		DB:        dbClient,
		Policies:  settingsService,
		Carts:     cartRepo,
		Snapshots: snapshotRepo,
		Users:     users.NewRepository(dbClient.DB()),
		Email:     sender,
		Notifier:  notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder sweep", err)
		os.Exit(1)
	}

	expirySweep, err := abandoned.NewExpirySweep(abandoned.ExpirySweepParams{
		Logger:    logg,
		DB:        dbClient,
		Policies:  settingsService,
		Carts:     cartRepo,
		Snapshots: snapshotRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry sweep", err)
		os.Exit(1)
	}

	sweepMetrics := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)

	reminderJob, err := cron.NewReminderJob(cron.ReminderJobParams{
		Logger:   logg,
		Sweep:    reminderSweep,
		Metrics:  sweepMetrics,
		Interval: cfg.Sweep.ReminderInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder job", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewExpiryJob(cron.ExpiryJobParams{
		Logger:   logg,
		Sweep:    expirySweep,
		Metrics:  sweepMetrics,
		Interval: cfg.Sweep.ExpiryInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reminderJob, expiryJob),
		Locks: func(jobName string) (cron.Lock, error) {
			return cron.NewRedisLock(redisClient, lockKey(cfg.App.Env, jobName), cfg.Sweep.LockTTL)
		},
		Metrics: sweepMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env, jobName string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env, jobName)
}
