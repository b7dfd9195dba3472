package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/valcrest-online/valcrest-backend/api/routes"
	"github.com/valcrest-online/valcrest-backend/internal/achievements"
	"github.com/valcrest-online/valcrest-backend/internal/ledger"
	"github.com/valcrest-online/valcrest-backend/internal/orders"
	"github.com/valcrest-online/valcrest-backend/internal/payments"
	"github.com/valcrest-online/valcrest-backend/internal/stock"
	"github.com/valcrest-online/valcrest-backend/internal/votes"
	"github.com/valcrest-online/valcrest-backend/internal/wheel"
	"github.com/valcrest-online/valcrest-backend/pkg/config"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/gameapi"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
	"github.com/valcrest-online/valcrest-backend/pkg/metrics"
	"github.com/valcrest-online/valcrest-backend/pkg/migrate"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox"
	"github.com/valcrest-online/valcrest-backend/pkg/redis"
	"github.com/valcrest-online/valcrest-backend/pkg/square"
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

	gameClient, err := gameapi.NewClient(cfg.GameAPI, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create game api client", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)
	rewardMetrics := metrics.NewRewardMetrics(registry)

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	stockService, err := stock.NewService(stock.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, dbClient, gameClient, events, rewardMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, stockService, ledgerRepo, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		stockService,
		squareClient,
		gameClient,
		paymentsService,
		events,
		orderMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	votesService, err := votes.NewService(votes.NewRepository(dbClient.DB()), dbClient, ledgerService, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create votes service", err)
		os.Exit(1)
	}

	achievementsService, err := achievements.NewService(achievements.NewRepository(dbClient.DB()), dbClient, gameClient, ledgerService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create achievements service", err)
		os.Exit(1)
	}

	wheelService, err := wheel.NewService(wheel.NewRepository(dbClient.DB()), dbClient, ledgerService, redisClient, 0, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wheel service", err)
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
			Cfg:          cfg,
			Logg:         logg,
			DB:           dbClient,
			Redis:        redisClient,
			Sessions:     redisClient,
			Registry:     registry,
			Orders:       ordersService,
			Payments:     paymentsService,
			Stock:        stockService,
			Ledger:       ledgerService,
			Votes:        votesService,
			Achievements: achievementsService,
			Wheel:        wheelService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
