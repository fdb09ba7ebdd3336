package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Warehouse is a storage location with separate ambient and refrigerated ceilings.
type Warehouse struct {
	ID                     uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                   string         `gorm:"column:name;not null" json:"name"`
	Location               types.Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	NormalCapacityKg       *int           `gorm:"column:normal_capacity_kg" json:"normal_capacity_kg,omitempty"`
	RefrigeratedCapacityKg *int           `gorm:"column:refrigerated_capacity_kg" json:"refrigerated_capacity_kg,omitempty"`
	CreatedAt              time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Stores reports whether the warehouse can hold goods with the given
// refrigeration requirement.
func (w Warehouse) Stores(requiresRefrigeration bool) bool {
	if !requiresRefrigeration {
		return true
	}
	return w.RefrigeratedCapacityKg != nil && *w.RefrigeratedCapacityKg > 0
}
