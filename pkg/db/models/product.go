package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "github.com/brewhouse/cafe-backend/pkg/db/types"
	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// Product is a menu item sold on its own or as part of a combo.
// Empty Sizes, SugarLevels or ToppingIDs mean every option is allowed.
type Product struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Description *string           `gorm:"column:description"`
	Category    string            `gorm:"column:category;not null;default:''"`
	ImageURL    string            `gorm:"column:image_url;not null;default:''"`
	Price       int64             `gorm:"column:price;not null"`
	Stock       int               `gorm:"column:stock;not null;default:0"`
	Sizes       pq.StringArray    `gorm:"column:sizes;type:text[];not null;default:'{}'"`
	SugarLevels pq.StringArray    `gorm:"column:sugar_levels;type:text[];not null;default:'{}'"`
	ToppingIDs  dbtypes.UUIDArray `gorm:"column:topping_ids;type:uuid[];not null;default:'{}'"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// AllowsSize reports whether size is one of the product's options.
func (p Product) AllowsSize(size enums.Size) bool {
	return allowsString(p.Sizes, string(size))
}

// AllowsSugarLevel reports whether level is one of the product's options.
func (p Product) AllowsSugarLevel(level enums.SugarLevel) bool {
	return allowsString(p.SugarLevels, string(level))
}

// AllowsTopping reports whether the topping may be added to this product.
func (p Product) AllowsTopping(id uuid.UUID) bool {
	return len(p.ToppingIDs) == 0 || p.ToppingIDs.Contains(id)
}

func allowsString(options []string, value string) bool {
	if len(options) == 0 {
		return true
	}
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
