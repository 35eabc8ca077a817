package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/enums"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// Order is the priced snapshot of a checkout. Only Status and PaymentInfo change after insert.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	TableID        *uuid.UUID          `gorm:"column:table_id;type:uuid"`
	TableNumber    *int                `gorm:"column:table_number"`
	Items          types.OrderLines    `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal       int64               `gorm:"column:subtotal;not null"`
	DiscountAmount int64               `gorm:"column:discount_amount;not null;default:0"`
	Total          int64               `gorm:"column:total;not null"`
	VoucherCode    *string             `gorm:"column:voucher_code"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentInfo    *types.PaymentInfo  `gorm:"column:payment_info;type:jsonb;serializer:json"`
	Note           *string             `gorm:"column:note"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
