// Command outbox-publisher relays committed order events from outbox_events
// to Pub/Sub and serves its own /metrics and /health.
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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/brewhouse/cafe-backend/api/controllers"
	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/metrics"
	"github.com/brewhouse/cafe-backend/pkg/migrate"
	"github.com/brewhouse/cafe-backend/pkg/outbox"
	"github.com/brewhouse/cafe-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

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

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher stopped")
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

	catalog, err := outbox.NewCatalog(cfg.PubSub)
	if err != nil {
		return err
	}
	broker, err := pubsub.Dial(ctx, cfg.GCP, catalog.Topics(), logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() { err = multierr.Append(err, broker.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	relay, err := outbox.NewRelay(outbox.RelayParams{
		DB:      dbClient,
		Store:   outbox.NewStore(),
		Catalog: catalog,
		Sender:  broker,
		Metrics: metrics.NewPublisherMetrics(registry),
		Logger:  logg,
		Config:  cfg.Outbox,
	})
	if err != nil {
		return err
	}

	mux := chi.NewRouter()
	mux.Get("/health/live", controllers.HealthLive(cfg))
	mux.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{"db": dbClient, "pubsub": broker}))
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	admin := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "admin server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, admin.Shutdown(shutdownCtx))
	}()

	logg.Info(logg.WithField(ctx, "addr", admin.Addr), "outbox publisher started")
	return relay.Run(ctx)
}
