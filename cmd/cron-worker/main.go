package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftpaylabs/swiftpay-backend/internal/cron"
	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/metrics"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/migrate"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/redis"
)

const lockKeyFormat = "sp:cron-worker:lock:%s"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	groupsRepo := groups.NewRepository(conn)
	updatesRepo := updates.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	participantsRepo := participants.NewRepository(conn)
	eventsRepo := ingest.NewRepository(conn)

	// Redelivery replays stuck events directly against the store, so the
	// redis fast path and the idempotency manager stay out of the loop.
	ingestService, err := ingest.NewService(
		dbClient,
		eventsRepo,
		ingest.NewDLQRepository(conn),
		groupsRepo,
		updatesRepo,
		paymentsRepo,
		participantsRepo,
		notify.NewBroker(logg),
		nil,
		metrics.NewIngestMetrics(prometheus.DefaultRegisterer),
		cfg.Eventing,
		logg,
	)
	requireResource(ctx, logg, "ingest service", err)

	redeliveryJob, err := cron.NewRedeliveryJob(cron.RedeliveryJobParams{
		Logger:   logg,
		Events:   eventsRepo,
		Replayer: ingestService,
		Age:      cfg.Cron.RedeliveryAge,
		Limit:    cfg.Cron.RedeliveryLimit,
	})
	requireResource(ctx, logg, "redelivery job", err)

	orphanSweepJob, err := cron.NewOrphanSweepJob(cron.OrphanSweepJobParams{
		Logger:  logg,
		Sweeper: ingestService,
	})
	requireResource(ctx, logg, "orphan sweep job", err)

	totalsRepairJob, err := cron.NewTotalsRepairJob(cron.TotalsRepairJobParams{
		Logger:       logg,
		DB:           dbClient,
		Groups:       groupsRepo,
		Payments:     paymentsRepo,
		Participants: participantsRepo,
	})
	requireResource(ctx, logg, "totals repair job", err)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	requireResource(ctx, logg, "cron lock", err)

	registry := cron.NewRegistry(redeliveryJob, orphanSweepJob, totalsRepairJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
