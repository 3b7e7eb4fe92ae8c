package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smartkart-ai/smartkart-backend/internal/broadcast"
	"github.com/smartkart-ai/smartkart-backend/internal/carts"
	"github.com/smartkart-ai/smartkart-backend/internal/catalog"
	"github.com/smartkart-ai/smartkart-backend/internal/consumers"
	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/internal/recentscans"
	"github.com/smartkart-ai/smartkart-backend/pkg/config"
	"github.com/smartkart-ai/smartkart-backend/pkg/db"
	"github.com/smartkart-ai/smartkart-backend/pkg/events/idempotency"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
	"github.com/smartkart-ai/smartkart-backend/pkg/migrate"
	"github.com/smartkart-ai/smartkart-backend/pkg/pubsub"
	"github.com/smartkart-ai/smartkart-backend/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	cartsRepo := carts.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	emitter, err := broadcast.NewEmitter(broadcast.WrapPublisher(pubsubClient.CartEventsPublisher()), logg, engineMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create event emitter", err)
		os.Exit(1)
	}

	reconciler, err := engine.New(engine.Params{
		Store:   cartsRepo,
		Catalog: catalogRepo,
		Emitter: emitter,
		Config:  cfg.Engine,
		Logger:  logg,
		Metrics: engineMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reconciliation engine", err)
		os.Exit(1)
	}

	idempotencyManager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	recentFeed, err := recentscans.NewFeed(redisClient, cfg.RecentScans)
	if err != nil {
		logg.Error(ctx, "failed to create recent scans feed", err)
		os.Exit(1)
	}

	tagScans, err := consumers.NewTagScanConsumer(reconciler, pubsubClient.TagScanSubscription(), idempotencyManager, recentFeed, logg, engineMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create tag scan consumer", err)
		os.Exit(1)
	}

	weights, err := consumers.NewWeightConsumer(reconciler, pubsubClient.WeightSubscription(), idempotencyManager, logg, engineMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create weight consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		PubSub:        pubsubClient,
		TagScans:      tagScans,
		WeightUpdates: weights,
	})
	if err != nil {
		logg.Error(ctx, "failed to assemble worker", err)
		os.Exit(1)
	}
	defer func() {
		if err := service.Close(); err != nil {
			logg.Error(context.Background(), "error closing worker resources", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shut down gracefully")
}
