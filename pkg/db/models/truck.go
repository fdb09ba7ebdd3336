package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Truck is a vehicle that can serve one trip or transfer at a time.
type Truck struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DriverID       *uuid.UUID        `gorm:"column:driver_id;type:uuid" json:"driver_id,omitempty"`
	Status         enums.TruckStatus `gorm:"column:status;type:text;not null;default:'available'" json:"status"`
	Type           enums.TruckType   `gorm:"column:type;type:text;not null" json:"type"`
	LoadCapacityKg *int              `gorm:"column:load_capacity_kg" json:"load_capacity_kg,omitempty"`
	CurrentLat     *float64          `gorm:"column:current_lat" json:"current_lat,omitempty"`
	CurrentLng     *float64          `gorm:"column:current_lng" json:"current_lng,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// CurrentLocation returns the last reported position, if any.
func (t Truck) CurrentLocation() (types.Location, bool) {
	if t.CurrentLat == nil || t.CurrentLng == nil {
		return types.Location{}, false
	}
	return types.Location{Lat: *t.CurrentLat, Lng: *t.CurrentLng}, true
}
