package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftpaylabs/swiftpay-backend/internal/chainfeed"
	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/idempotency"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/metrics"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/migrate"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pubsub"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	subscription := pubsubClient.ChainEventsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "chain events subscription", errors.New("subscription not configured"))
	}

	idemManager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	conn := dbClient.DB()
	ingestMetrics := metrics.NewIngestMetrics(prometheus.DefaultRegisterer)
	broker := notify.NewBroker(logg)

	ingestService, err := ingest.NewService(
		dbClient,
		ingest.NewRepository(conn),
		ingest.NewDLQRepository(conn),
		groups.NewRepository(conn),
		updates.NewRepository(conn),
		payments.NewRepository(conn),
		participants.NewRepository(conn),
		broker,
		idemManager,
		ingestMetrics,
		cfg.Eventing,
		logg,
	)
	requireResource(ctx, logg, "ingest service", err)

	consumer, err := chainfeed.NewConsumer(subscription, ingestService, logg)
	requireResource(ctx, logg, "chain events consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "chain events worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "chain events worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "chain events worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
