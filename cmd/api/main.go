package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftpaylabs/swiftpay-backend/api/controllers"
	"github.com/swiftpaylabs/swiftpay-backend/api/routes"
	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/stats"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/idempotency"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/metrics"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/migrate"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	dlqRepo := ingest.NewDLQRepository(conn)

	groupsService, err := groups.NewService(groupsRepo)
	requireResource(ctx, logg, "groups service", err)
	updatesService, err := updates.NewService(updatesRepo)
	requireResource(ctx, logg, "updates service", err)
	paymentsService, err := payments.NewService(paymentsRepo)
	requireResource(ctx, logg, "payments service", err)
	participantsService, err := participants.NewService(participantsRepo)
	requireResource(ctx, logg, "participants service", err)
	statsService, err := stats.NewService(groupsRepo, paymentsRepo, participantsRepo, dlqRepo)
	requireResource(ctx, logg, "stats service", err)

	idemManager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	ingestMetrics := metrics.NewIngestMetrics(prometheus.DefaultRegisterer)
	broker := notify.NewBroker(logg)

	ingestService, err := ingest.NewService(
		dbClient,
		eventsRepo,
		dlqRepo,
		groupsRepo,
		updatesRepo,
		paymentsRepo,
		participantsRepo,
		broker,
		idemManager,
		ingestMetrics,
		cfg.Eventing,
		logg,
	)
	requireResource(ctx, logg, "ingest service", err)

	router := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		Groups:       groupsService,
		Updates:      updatesService,
		Payments:     paymentsService,
		Participants: participantsService,
		Stats:        statsService,
		Ingest:       ingestService,
		Broker:       broker,
		Readiness: map[string]controllers.ReadinessPinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Metrics: prometheus.DefaultGatherer,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(runCtx, "api server shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
