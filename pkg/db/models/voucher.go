package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// Voucher is a discount code with a validity window and a usage cap.
// Nil StartDate/ExpiryDate leave that side of the window open.
type Voucher struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	Description   *string            `gorm:"column:description"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscount   int64              `gorm:"column:max_discount;not null;default:0"`
	MinOrderValue int64              `gorm:"column:min_order_value;not null;default:0"`
	StartDate     *time.Time         `gorm:"column:start_date"`
	ExpiryDate    *time.Time         `gorm:"column:expiry_date"`
	Quantity      int                `gorm:"column:quantity;not null;default:0"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
