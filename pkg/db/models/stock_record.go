package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

// StockRecord is one registered physical batch of a product.
type StockRecord struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID          uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	SupplierID         uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null" json:"supplier_id"`
	WarehouseID        *uuid.UUID        `gorm:"column:warehouse_id;type:uuid;index" json:"warehouse_id,omitempty"`
	QuantityKg         decimal.Decimal   `gorm:"column:quantity_kg;type:numeric(12,3);not null" json:"quantity_kg"`
	Quality            enums.Quality     `gorm:"column:quality;type:text;not null;default:'unclassified'" json:"quality"`
	Status             enums.StockStatus `gorm:"column:status;type:text;not null;default:'in_stock';index" json:"status"`
	RegistrationDate   *time.Time        `gorm:"column:registration_date" json:"registration_date,omitempty"`
	ExpiresAt          *time.Time        `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	SaleDate           *time.Time        `gorm:"column:sale_date" json:"sale_date,omitempty"`
	ReservedOrderID    *uuid.UUID        `gorm:"column:reserved_order_id;type:uuid" json:"reserved_order_id,omitempty"`
	ReservedTransferID *uuid.UUID        `gorm:"column:reserved_transfer_id;type:uuid" json:"reserved_transfer_id,omitempty"`
	Version            int               `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsReserved reports whether an order or a transfer holds the record.
func (r StockRecord) IsReserved() bool {
	return r.ReservedOrderID != nil || r.ReservedTransferID != nil
}

// Selectable reports whether the record can be claimed by a new order or transfer.
func (r StockRecord) Selectable() bool {
	return r.Status == enums.StockStatusInStock && !r.IsReserved()
}
