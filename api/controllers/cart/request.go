package cart

import "github.com/google/uuid"

// The userId body field is optional; when present it must match the caller unless the caller is an operator.

type addProductRequest struct {
	UserID     *uuid.UUID  `json:"userId"`
	ProductID  uuid.UUID   `json:"productId" validate:"required"`
	Quantity   *int        `json:"quantity"`
	Size       string      `json:"size"`
	SugarLevel string      `json:"sugarLevel"`
	ToppingIDs []uuid.UUID `json:"toppingIds" validate:"omitempty,max=20"`
}

type addComboRequest struct {
	UserID   *uuid.UUID `json:"userId"`
	ComboID  uuid.UUID  `json:"comboId" validate:"required"`
	Quantity *int       `json:"quantity"`
}

type updateQuantityRequest struct {
	UserID      *uuid.UUID `json:"userId"`
	CartItemID  uuid.UUID  `json:"cartItemId" validate:"required"`
	NewQuantity *int       `json:"newQuantity" validate:"required"`
}

// quantityOrOne defaults an omitted add quantity to a single unit.
// Explicit values, including zero, are left for the service to judge.
func quantityOrOne(q *int) int {
	if q == nil {
		return 1
	}
	return *q
}

type removeItemRequest struct {
	UserID     *uuid.UUID `json:"userId"`
	CartItemID uuid.UUID  `json:"cartItemId" validate:"required"`
}

type clearCartRequest struct {
	UserID *uuid.UUID `json:"userId"`
}

type applyVoucherRequest struct {
	UserID      *uuid.UUID `json:"userId"`
	VoucherCode string     `json:"voucher_code" validate:"required,max=64"`
}
