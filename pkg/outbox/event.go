package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/enums"
)

const envelopeVersion = 1

// Event is an order lifecycle fact. Data is one of the payload types below.
type Event struct {
	Type    enums.OutboxEventType
	OrderID uuid.UUID
	Actor   *Actor
	Data    any
}

// Actor is who caused the event. Gateway callbacks have none.
type Actor struct {
	UserID uuid.UUID      `json:"userId"`
	Role   enums.UserRole `json:"role"`
}

// Envelope is the stored payload column and the published message body.
type Envelope struct {
	Version    int                   `json:"version"`
	EventID    string                `json:"eventId"`
	Type       enums.OutboxEventType `json:"type"`
	OccurredAt time.Time             `json:"occurredAt"`
	Actor      *Actor                `json:"actor,omitempty"`
	Data       json.RawMessage       `json:"data"`
}

type OrderCreated struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	TableNumber   *int                `json:"table_number,omitempty"`
	ItemCount     int                 `json:"item_count"`
	Subtotal      int64               `json:"subtotal"`
	Discount      int64               `json:"discount_amount"`
	Total         int64               `json:"total"`
	VoucherCode   *string             `json:"voucher_code,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

type OrderPaid struct {
	OrderID       uuid.UUID `json:"order_id"`
	Total         int64     `json:"total"`
	TransactionID string    `json:"transaction_id"`
	BankCode      string    `json:"bank_code,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

type OrderPaymentFailed struct {
	OrderID      uuid.UUID `json:"order_id"`
	ResponseCode string    `json:"response_code"`
	Reason       string    `json:"reason,omitempty"`
}

type OrderStatusChanged struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedBy  *uuid.UUID        `json:"changed_by,omitempty"`
}
