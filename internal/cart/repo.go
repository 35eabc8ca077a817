package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// ErrStaleVersion is returned when a save loses the compare-and-swap on version.
var ErrStaleVersion = errors.New("cart version is stale")

// Repository persists carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser loads the cart owned by userID.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = types.CartLines{}
	}
	return &cart, nil
}

// Create inserts a brand new cart at version 0.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Items == nil {
		cart.Items = types.CartLines{}
	}
	cart.Version = 0
	return r.db.WithContext(ctx).Create(cart).Error
}

// SaveVersioned writes the mutable cart columns only if the stored version still
// equals cart.Version, then advances cart.Version.
func (r *Repository) SaveVersioned(ctx context.Context, cart *models.Cart) error {
	expected := cart.Version
	next := models.Cart{
		Items:          cart.Items,
		TotalPrice:     cart.TotalPrice,
		VoucherCode:    cart.VoucherCode,
		DiscountAmount: cart.DiscountAmount,
		Version:        expected + 1,
		UpdatedAt:      time.Now().UTC(),
	}
	if next.Items == nil {
		next.Items = types.CartLines{}
	}

	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cart.ID, expected).
		Select("items", "total_price", "voucher_code", "discount_amount", "version", "updated_at").
		Updates(&next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	cart.Version = next.Version
	cart.UpdatedAt = next.UpdatedAt
	return nil
}
