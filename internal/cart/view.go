package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/internal/pricing"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// CartView is the cart snapshot returned to clients.
type CartView struct {
	ID             *uuid.UUID      `json:"id,omitempty"`
	UserID         uuid.UUID       `json:"userId"`
	Items          types.CartLines `json:"items"`
	TotalPrice     int64           `json:"totalPrice"`
	VoucherCode    *string         `json:"voucherCode"`
	DiscountAmount int64           `json:"discountAmount"`
	FinalPrice     int64           `json:"finalPrice"`
	Version        int64           `json:"version"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
}

// NewCartView maps a persisted cart to its client view.
func NewCartView(cart *models.Cart) *CartView {
	if cart == nil {
		return nil
	}
	id := cart.ID
	updated := cart.UpdatedAt
	items := cart.Items
	if items == nil {
		items = types.CartLines{}
	}
	view := &CartView{
		ID:             &id,
		UserID:         cart.UserID,
		Items:          items,
		TotalPrice:     cart.TotalPrice,
		VoucherCode:    cart.VoucherCode,
		DiscountAmount: cart.DiscountAmount,
		FinalPrice:     pricing.FinalTotal(cart.TotalPrice, cart.DiscountAmount),
		Version:        cart.Version,
	}
	if !updated.IsZero() {
		view.UpdatedAt = &updated
	}
	return view
}

// EmptyCartView is returned for users who have never mutated a cart.
func EmptyCartView(userID uuid.UUID) *CartView {
	return &CartView{UserID: userID, Items: types.CartLines{}}
}
