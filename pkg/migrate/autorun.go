package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db"
	"github.com/brewhouse/cafe-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on dev boots with CAFE_AUTO_MIGRATE set.
// Everywhere else migrations are an explicit cmd/migrate step.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})
	started := time.Now()
	if err := upgrade(ctx, client, logg); err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(started).Milliseconds()), "dev schema ready")
	return nil
}

func upgrade(ctx context.Context, client *db.Client, logg *logger.Logger) error {
	if client.Driver() == config.DriverSQLite {
		return ApplySQLite(ctx, client.DB())
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, DefaultDir, logg)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
