package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/brewhouse/cafe-backend/api/routes"
	"github.com/brewhouse/cafe-backend/internal/cart"
	"github.com/brewhouse/cafe-backend/internal/catalog"
	"github.com/brewhouse/cafe-backend/internal/orders"
	"github.com/brewhouse/cafe-backend/internal/payments/vnpay"
	"github.com/brewhouse/cafe-backend/internal/vouchers"
	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/metrics"
	"github.com/brewhouse/cafe-backend/pkg/migrate"
	"github.com/brewhouse/cafe-backend/pkg/outbox"
	"github.com/brewhouse/cafe-backend/pkg/redis"
	"github.com/brewhouse/cafe-backend/pkg/replay"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	voucherService, err := vouchers.NewService(vouchers.NewRepository(dbClient.DB()), time.Now)
	if err != nil {
		return err
	}

	cartLocker, err := cart.NewRedisLocker(redisClient, cfg.Cart.LockTTL)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:        cart.NewRepository(dbClient.DB()),
		Catalog:     catalogRepo,
		Vouchers:    voucherService,
		Locker:      cartLocker,
		Metrics:     checkoutMetrics,
		Logger:      logg,
		MaxAttempts: cfg.Cart.MaxAttempts,
	})
	if err != nil {
		return err
	}

	orderParams := orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Catalog:  catalogRepo,
		Vouchers: voucherService,
		Outbox:   outbox.NewWriter(outbox.NewStore(), logg),
		Cart:     cartService,
		Metrics:  checkoutMetrics,
		Logger:   logg,
		Payment:  cfg.VNPay,
	}
	if cfg.VNPay.Enabled() {
		if orderParams.Gateway, err = vnpay.NewClient(cfg.VNPay, time.Now); err != nil {
			return err
		}
		if orderParams.Replay, err = replay.NewGuard(redisClient, vnpay.Gateway, cfg.VNPay.CallbackTTL); err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "vnpay credentials missing; online payments disabled")
	}
	ordersService, err := orders.NewService(orderParams)
	if err != nil {
		return err
	}

	port := cfg.App.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Cart:     cartService,
			Orders:   ordersService,
			Registry: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "api server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
