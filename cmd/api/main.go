package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smartkart-ai/smartkart-backend/api/routes"
	"github.com/smartkart-ai/smartkart-backend/internal/broadcast"
	"github.com/smartkart-ai/smartkart-backend/internal/carts"
	"github.com/smartkart-ai/smartkart-backend/internal/catalog"
	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/internal/recentscans"
	"github.com/smartkart-ai/smartkart-backend/pkg/config"
	"github.com/smartkart-ai/smartkart-backend/pkg/db"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
	"github.com/smartkart-ai/smartkart-backend/pkg/migrate"
	"github.com/smartkart-ai/smartkart-backend/pkg/pubsub"
	"github.com/smartkart-ai/smartkart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	cartsRepo := carts.NewRepository(dbClient.DB())
	cartsService, err := carts.NewService(cartsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create carts service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	emitter, err := broadcast.NewEmitter(broadcast.WrapPublisher(pubsubClient.CartEventsPublisher()), logg, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create event emitter", err)
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
		logg.Error(context.Background(), "failed to create reconciliation engine", err)
		os.Exit(1)
	}

	recentFeed, err := recentscans.NewFeed(redisClient, cfg.RecentScans)
	if err != nil {
		logg.Error(context.Background(), "failed to create recent scans feed", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			PubSub:     pubsubClient,
			Carts:      cartsService,
			Catalog:    catalogService,
			Engine:     reconciler,
			RecentFeed: recentFeed,
			Registry:   registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
