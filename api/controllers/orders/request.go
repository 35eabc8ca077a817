package orders

import (
	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/api/validators"
	internalorders "github.com/brewhouse/cafe-backend/internal/orders"
)

type insertOrderRequest struct {
	PaymentMethod string             `json:"payment_method" validate:"required"`
	Items         []orderItemRequest `json:"items" validate:"omitempty,max=50,dive"`
	VoucherCode   *string            `json:"voucher_code" validate:"omitempty,max=64"`
	TableID       *uuid.UUID         `json:"table_id"`
	Note          *string            `json:"note" validate:"omitempty,max=500"`
	BankCode      string             `json:"bank_code" validate:"omitempty,max=20"`
	ClearCart     bool               `json:"clear_cart"`
}

type orderItemRequest struct {
	ItemType   string      `json:"itemType" validate:"required"`
	ProductID  *uuid.UUID  `json:"productId"`
	ComboID    *uuid.UUID  `json:"comboId"`
	Quantity   int         `json:"quantity"`
	Size       string      `json:"size"`
	SugarLevel string      `json:"sugarLevel"`
	ToppingIDs []uuid.UUID `json:"toppingIds" validate:"omitempty,max=20"`
	// Accepted for client compatibility; prices always come from the catalog.
	Price *int64 `json:"price"`
	Name  string `json:"name"`
}

func (r insertOrderRequest) toInput(userID uuid.UUID, clientIP string) internalorders.CreateOrderInput {
	items := make([]internalorders.ItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, internalorders.ItemRequest{
			ItemType:   item.ItemType,
			ProductID:  item.ProductID,
			ComboID:    item.ComboID,
			Quantity:   item.Quantity,
			Size:       validators.SanitizeString(item.Size, 16),
			SugarLevel: validators.SanitizeString(item.SugarLevel, 16),
			ToppingIDs: item.ToppingIDs,
		})
	}
	return internalorders.CreateOrderInput{
		UserID:        &userID,
		Items:         items,
		PaymentMethod: r.PaymentMethod,
		VoucherCode:   validators.SanitizeOptional(r.VoucherCode, 64),
		TableID:       r.TableID,
		Note:          validators.SanitizeOptional(r.Note, 500),
		BankCode:      validators.SanitizeString(r.BankCode, 20),
		ClientIP:      clientIP,
		ClearCart:     r.ClearCart,
	}
}

type updateOrderRequest struct {
	OrderID    uuid.UUID       `json:"orderId" validate:"required"`
	UpdateData orderUpdateData `json:"updateData"`
}

type orderUpdateData struct {
	Status string `json:"status" validate:"required"`
}

type retryPaymentRequest struct {
	BankCode string `json:"bank_code" validate:"omitempty,max=20"`
}
