package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// Table is a dine-in table orders can be attached to.
type Table struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number    int               `gorm:"column:number;not null;uniqueIndex"`
	Seats     int               `gorm:"column:seats;not null;default:0"`
	Status    enums.TableStatus `gorm:"column:status;type:text;not null;default:'available'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
