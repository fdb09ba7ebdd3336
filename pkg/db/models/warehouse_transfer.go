package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

// WarehouseTransfer relocates one stock record between two warehouses.
type WarehouseTransfer struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RecordID               uuid.UUID            `gorm:"column:record_id;type:uuid;not null;index" json:"record_id"`
	OriginWarehouseID      uuid.UUID            `gorm:"column:origin_warehouse_id;type:uuid;not null" json:"origin_warehouse_id"`
	DestinationWarehouseID uuid.UUID            `gorm:"column:destination_warehouse_id;type:uuid;not null" json:"destination_warehouse_id"`
	TruckID                *uuid.UUID           `gorm:"column:truck_id;type:uuid" json:"truck_id,omitempty"`
	Status                 enums.TransferStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	Reason                 enums.TransferReason `gorm:"column:reason;type:text;not null" json:"reason"`
	EstimatedMinutes       *int                 `gorm:"column:estimated_minutes" json:"estimated_minutes,omitempty"`
	ActualMinutes          *int                 `gorm:"column:actual_minutes" json:"actual_minutes,omitempty"`
	RequestedDate          time.Time            `gorm:"column:requested_date;not null" json:"requested_date"`
	StartDate              *time.Time           `gorm:"column:start_date" json:"start_date,omitempty"`
	CompletedDate          *time.Time           `gorm:"column:completed_date" json:"completed_date,omitempty"`
	Notes                  *string              `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
