package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// ComboProduct is one constituent of a combo bundle.
type ComboProduct struct {
	ProductID         uuid.UUID        `json:"productId"`
	Quantity          int              `json:"quantity"`
	DefaultSize       enums.Size       `json:"defaultSize,omitempty"`
	DefaultSugarLevel enums.SugarLevel `json:"defaultSugarLevel,omitempty"`
}

// Combo is a fixed bundle sold at one all-inclusive price.
type Combo struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	ImageURL    string         `gorm:"column:image_url;not null;default:''"`
	Price       int64          `gorm:"column:price;not null"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Products    []ComboProduct `gorm:"column:products;type:jsonb;serializer:json;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
