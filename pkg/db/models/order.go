package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

// Order is a buyer's purchase over one or more stock records.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	OrderDate   time.Time         `gorm:"column:order_date;not null" json:"order_date"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	ConfirmedAt *time.Time        `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CompletedAt *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time        `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// OrderItem pins the price a record was reserved at.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	RecordID        uuid.UUID       `gorm:"column:record_id;type:uuid;not null" json:"record_id"`
	PriceAtPurchase decimal.Decimal `gorm:"column:price_at_purchase;type:numeric(12,2);not null" json:"price_at_purchase"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
