package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Trip is a truck's delivery leg for one order.
type Trip struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	TruckID          uuid.UUID         `gorm:"column:truck_id;type:uuid;not null;index" json:"truck_id"`
	Status           enums.TripStatus  `gorm:"column:status;type:text;not null;default:'waiting'" json:"status"`
	PausedFrom       *enums.TripStatus `gorm:"column:paused_from;type:text" json:"paused_from,omitempty"`
	Origin           types.Location    `gorm:"embedded;embeddedPrefix:origin_" json:"origin"`
	Destination      types.Location    `gorm:"embedded;embeddedPrefix:destination_" json:"destination"`
	EstimatedMinutes *int              `gorm:"column:estimated_minutes" json:"estimated_minutes,omitempty"`
	ActualMinutes    *int              `gorm:"column:actual_minutes" json:"actual_minutes,omitempty"`
	StartDate        *time.Time        `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate          *time.Time        `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
