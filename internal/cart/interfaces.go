package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/internal/vouchers"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SaveVersioned(ctx context.Context, cart *models.Cart) error
}

type voucherPreviewer interface {
	Preview(ctx context.Context, code string, subtotal int64) (*vouchers.Quote, error)
}
