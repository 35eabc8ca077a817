package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/migrate"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

func setupCartRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:cartrepo_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.ApplySQLite(context.Background(), db))
	return db
}

func TestSaveVersionedRejectsStaleWriter(t *testing.T) {
	db := setupCartRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, repo.Create(ctx, &models.Cart{UserID: user}))

	a, err := repo.FindByUser(ctx, user)
	require.NoError(t, err)
	b, err := repo.FindByUser(ctx, user)
	require.NoError(t, err)

	a.Items = types.CartLines{types.NewComboLine(uuid.New(), "Combo", "", 30000, 1)}
	a.TotalPrice = 30000
	require.NoError(t, repo.SaveVersioned(ctx, a))
	assert.Equal(t, int64(1), a.Version)

	b.TotalPrice = 99
	assert.ErrorIs(t, repo.SaveVersioned(ctx, b), ErrStaleVersion)

	stored, err := repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), stored.TotalPrice)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, a.Items[0].ID, stored.Items[0].ID)
	assert.Equal(t, int64(1), stored.Version)
}

func TestCreateIsUniquePerUser(t *testing.T) {
	db := setupCartRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, repo.Create(ctx, &models.Cart{UserID: user}))
	require.Error(t, repo.Create(ctx, &models.Cart{UserID: user}))

	_, err := repo.FindByUser(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
