package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgpagination "github.com/brewhouse/cafe-backend/pkg/pagination"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// ItemRequest is one requested order line. Client prices are never read.
type ItemRequest struct {
	ItemType   string
	ProductID  *uuid.UUID
	ComboID    *uuid.UUID
	Quantity   int
	Size       string
	SugarLevel string
	ToppingIDs []uuid.UUID
}

// CreateOrderInput is a checkout request.
type CreateOrderInput struct {
	UserID        *uuid.UUID
	Items         []ItemRequest
	PaymentMethod string
	VoucherCode   *string
	TableID       *uuid.UUID
	Note          *string
	BankCode      string
	ClientIP      string
	ClearCart     bool
}

// CreateOrderResult pairs the persisted order with its gateway URL, if any.
type CreateOrderResult struct {
	Order      *OrderDTO `json:"order"`
	PaymentURL *string   `json:"paymentUrl"`
}

// Viewer identifies who is reading or acting on an order.
type Viewer struct {
	UserID   uuid.UUID
	Operator bool
}

// CanSee reports whether the viewer may read order.
func (v Viewer) CanSee(order *models.Order) bool {
	if v.Operator {
		return true
	}
	return order.UserID != nil && *order.UserID == v.UserID
}

// ListParams filters the operator order list.
type ListParams struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
	pkgpagination.Params
}

// OrderList is one page of orders.
type OrderList struct {
	Orders []OrderDTO `json:"orders"`
	Cursor string     `json:"cursor"`
}

type listQuery struct {
	status *enums.OrderStatus
	userID *uuid.UUID
	limit  int
	cursor *pkgpagination.Cursor
}

// CallbackOutcome tells the HTTP layer where to send the browser.
type CallbackOutcome struct {
	OrderID  uuid.UUID
	Result   string
	Redirect string
}

// OrderDTO is the client representation of an order.
type OrderDTO struct {
	ID             uuid.UUID           `json:"id"`
	UserID         *uuid.UUID          `json:"userId,omitempty"`
	TableID        *uuid.UUID          `json:"tableId,omitempty"`
	TableNumber    *int                `json:"tableNumber,omitempty"`
	Items          types.OrderLines    `json:"items"`
	Subtotal       int64               `json:"subtotal"`
	DiscountAmount int64               `json:"discountAmount"`
	Total          int64               `json:"total"`
	VoucherCode    *string             `json:"voucherCode"`
	PaymentMethod  enums.PaymentMethod `json:"paymentMethod"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentInfo    *types.PaymentInfo  `json:"paymentInfo,omitempty"`
	Note           *string             `json:"note,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// NewOrderDTO maps a persisted order.
func NewOrderDTO(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := o.Items
	if items == nil {
		items = types.OrderLines{}
	}
	return &OrderDTO{
		ID:             o.ID,
		UserID:         o.UserID,
		TableID:        o.TableID,
		TableNumber:    o.TableNumber,
		Items:          items,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total,
		VoucherCode:    o.VoucherCode,
		PaymentMethod:  o.PaymentMethod,
		Status:         o.Status,
		PaymentInfo:    o.PaymentInfo,
		Note:           o.Note,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
