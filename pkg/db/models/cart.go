package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/types"
)

// Cart is the single mutable cart owned by a user. Version guards every save.
type Cart struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items          types.CartLines `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TotalPrice     int64           `gorm:"column:total_price;not null;default:0"`
	VoucherCode    *string         `gorm:"column:voucher_code"`
	DiscountAmount int64           `gorm:"column:discount_amount;not null;default:0"`
	Version        int64           `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
