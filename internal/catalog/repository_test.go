package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbtypes "github.com/brewhouse/cafe-backend/pkg/db/types"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/migrate"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:catalog_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.ApplySQLite(context.Background(), db))
	return db
}

func TestFindProductRoundTripsOptions(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	topping := uuid.New()
	product := models.Product{
		ID:          uuid.New(),
		Name:        "Bac xiu",
		Price:       35000,
		Stock:       12,
		Sizes:       pq.StringArray{"M", "L"},
		SugarLevels: pq.StringArray{"50 SL"},
		ToppingIDs:  dbtypes.UUIDArray{topping},
		IsActive:    true,
	}
	require.NoError(t, db.Create(&product).Error)

	got, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), got.Price)
	assert.True(t, got.AllowsSize(enums.SizeL))
	assert.False(t, got.AllowsSugarLevel(enums.SugarLevel75))
	assert.True(t, got.AllowsTopping(topping))
	assert.False(t, got.AllowsTopping(uuid.New()))

	_, err = repo.FindProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindProductsKeysByID(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	a := models.Product{ID: uuid.New(), Name: "A", Price: 1000, IsActive: true}
	b := models.Product{ID: uuid.New(), Name: "B", Price: 2000, IsActive: true}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	got, err := repo.FindProducts(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[b.ID].Name)

	empty, err := repo.FindProducts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindToppingsSkipsUnknownAndInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	pearl := models.Topping{ID: uuid.New(), Name: "Pearl", Price: 5000, IsActive: true}
	jelly := models.Topping{ID: uuid.New(), Name: "Jelly", Price: 6000, IsActive: true}
	retired := models.Topping{ID: uuid.New(), Name: "Retired", Price: 1000, IsActive: true}
	require.NoError(t, db.Create(&pearl).Error)
	require.NoError(t, db.Create(&jelly).Error)
	require.NoError(t, db.Create(&retired).Error)
	require.NoError(t, db.Model(&models.Topping{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	got, err := repo.FindToppings(context.Background(), []uuid.UUID{jelly.ID, uuid.New(), pearl.ID, retired.ID, jelly.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, jelly.ID, got[0].ID)
	assert.Equal(t, pearl.ID, got[1].ID)
}

func TestFindComboAndTable(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	combo := models.Combo{
		ID:       uuid.New(),
		Name:     "Morning set",
		Price:    69000,
		IsActive: true,
		Products: []models.ComboProduct{{ProductID: productID, Quantity: 2, DefaultSize: enums.SizeM, DefaultSugarLevel: enums.SugarLevel50}},
	}
	require.NoError(t, db.Create(&combo).Error)

	gotCombo, err := repo.FindCombo(ctx, combo.ID)
	require.NoError(t, err)
	require.Len(t, gotCombo.Products, 1)
	assert.Equal(t, productID, gotCombo.Products[0].ProductID)
	assert.Equal(t, 2, gotCombo.Products[0].Quantity)

	table := models.Table{ID: uuid.New(), Number: 7, Seats: 4, Status: enums.TableStatusAvailable}
	require.NoError(t, db.Create(&table).Error)
	gotTable, err := repo.WithTx(db).FindTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, gotTable.Number)

	_, err = repo.FindTable(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCheckComboStockSumsRepeatedProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	bun := models.Product{ID: uuid.New(), Name: "Bun", Price: 15000, Stock: 5, IsActive: true}
	require.NoError(t, db.Create(&bun).Error)
	combo := &models.Combo{
		ID:       uuid.New(),
		Name:     "Bun pair",
		Price:    25000,
		IsActive: true,
		Products: []models.ComboProduct{
			{ProductID: bun.ID, Quantity: 2},
			{ProductID: bun.ID, Quantity: 1},
		},
	}

	got, err := CheckComboStock(ctx, repo, combo, 1)
	require.NoError(t, err)
	assert.Contains(t, got, bun.ID)

	// each entry fits alone (2*2 and 1*2) but together they need 6 of 5
	_, err = CheckComboStock(ctx, repo, combo, 2)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonComboProductOutOfStock, pkgerrors.ReasonOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 6, details["required"])
	assert.Equal(t, 5, details["available"])
}
