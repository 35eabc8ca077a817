package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestVoucherMigrationGuardsUsage(t *testing.T) {
	assertContains(t, readMigration(t, "create_vouchers"), []string{
		"CREATE TABLE IF NOT EXISTS vouchers",
		"discount_value numeric(12,2) NOT NULL",
		"CHECK (used_count >= 0 AND used_count <= quantity)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_vouchers_code",
		"DROP TABLE IF EXISTS vouchers",
	})
}

func TestCartMigrationCarriesVersion(t *testing.T) {
	assertContains(t, readMigration(t, "create_carts"), []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"version bigint NOT NULL DEFAULT 0",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user_id",
		"DROP TABLE IF EXISTS carts",
	})
}

func TestOrderMigrationConstrainsStatus(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"'pending', 'paid', 'processing', 'shipped', 'delivered', 'cancelled', 'payment_failed'",
		"payment_method IN ('cash', 'vnpay')",
		"CHECK (total >= 0)",
		"DROP TABLE IF EXISTS orders",
	})
}

func TestOutboxMigrationHasDLQ(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"WHERE published_at IS NULL",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_outbox_dlq_event_id",
	})
}

func TestMigrationsDirValidates(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestApplySQLiteCreatesTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, migrate.ApplySQLite(ctx, conn))
	// idempotent
	require.NoError(t, migrate.ApplySQLite(ctx, conn))

	for _, table := range []string{"products", "toppings", "combos", "tables", "vouchers", "carts", "orders", "outbox_events", "outbox_dlq"} {
		require.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestCreateSQLMigrationValidates(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Loyalty Points!")
	require.NoError(t, err)
	require.Regexp(t, `^\d{14}_add_loyalty_points\.sql$`, filepath.Base(path))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte("-- +goose Up\n"), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad-name.sql")
	require.Contains(t, err.Error(), "-- +goose Down")
}
