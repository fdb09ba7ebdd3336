package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/freshroute-backend/api/routes"
	"github.com/angelmondragon/freshroute-backend/internal/lifecycle"
	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/internal/products"
	"github.com/angelmondragon/freshroute-backend/internal/quotes"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/internal/transfers"
	"github.com/angelmondragon/freshroute-backend/internal/trips"
	"github.com/angelmondragon/freshroute-backend/internal/trucks"
	"github.com/angelmondragon/freshroute-backend/internal/warehouses"
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

const shutdownTimeout = 15 * time.Second

type services struct {
	products   products.Service
	warehouses warehouses.Service
	trucks     trucks.Service
	quotes     quotes.Service
	stock      stock.Service
	orders     orders.Service
	transfers  transfers.Service
	trips      trips.Service
}

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

	svcs, err := buildServices(cfg, logg, dbClient, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, redisClient, prometheus.DefaultGatherer,
			svcs.products, svcs.warehouses, svcs.trucks, svcs.quotes,
			svcs.stock, svcs.orders, svcs.transfers, svcs.trips,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (*services, error) {
	conn := dbClient.DB()
	clk := clock.Real()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	writer, err := stock.NewWriter(lifecycle.New(metrics.NewLifecycleMetrics(reg)), emitter, clk, logg)
	if err != nil {
		return nil, err
	}

	productRepo := products.NewRepository(conn)
	warehouseRepo := warehouses.NewRepository(conn)

	productSvc, err := products.NewService(productRepo, logg, clk)
	if err != nil {
		return nil, err
	}
	warehouseSvc, err := warehouses.NewService(warehouseRepo, logg)
	if err != nil {
		return nil, err
	}
	truckSvc, err := trucks.NewService(trucks.NewRepository(conn), logg)
	if err != nil {
		return nil, err
	}
	quoteSvc, err := quotes.NewService(quotes.ServiceParams{
		Repo:     quotes.NewRepository(conn),
		DB:       dbClient,
		Products: productRepo,
		Outbox:   emitter,
		Clock:    clk,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	stockSvc, err := stock.NewService(stock.ServiceParams{
		Repo:           stock.NewRepository(conn),
		DB:             dbClient,
		Writer:         writer,
		Products:       productRepo,
		Warehouses:     warehouseRepo,
		Quotes:         quoteSvc,
		Clock:          clk,
		Logger:         logg,
		NearExpiryDays: cfg.Lifecycle.NearExpiryDays,
	})
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
	transferSvc, err := transfers.NewService(transfers.ServiceParams{
		Repo:            transfers.NewRepository(conn),
		DB:              dbClient,
		Writer:          writer,
		Outbox:          emitter,
		Clock:           clk,
		Logger:          logg,
		AverageSpeedKPH: cfg.Transfers.AverageSpeedKPH,
	})
	if err != nil {
		return nil, err
	}
	tripSvc, err := trips.NewService(trips.ServiceParams{
		Repo:            trips.NewRepository(conn),
		DB:              dbClient,
		Orders:          transitioner,
		Outbox:          emitter,
		Clock:           clk,
		Logger:          logg,
		AverageSpeedKPH: cfg.Transfers.AverageSpeedKPH,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		products:   productSvc,
		warehouses: warehouseSvc,
		trucks:     truckSvc,
		quotes:     quoteSvc,
		stock:      stockSvc,
		orders:     orderSvc,
		transfers:  transferSvc,
		trips:      tripSvc,
	}, nil
}
