package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

// Quote is a supplier's offer to supply a product.
type Quote struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SupplierID     uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null" json:"supplier_id"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Status         enums.QuoteStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	SubmissionDate time.Time         `gorm:"column:submission_date;not null" json:"submission_date"`
	DecidedAt      *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
