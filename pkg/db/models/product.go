package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog definition that stock records are registered against.
type Product struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                  string          `gorm:"column:name;not null" json:"name"`
	BasePrice             decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null" json:"base_price"`
	DiscountPercentage    int             `gorm:"column:discount_percentage;not null;default:0" json:"discount_percentage"`
	RequiresRefrigeration bool            `gorm:"column:requires_refrigeration;not null;default:false" json:"requires_refrigeration"`
	ShelfLifeDays         *int            `gorm:"column:shelf_life_days" json:"shelf_life_days,omitempty"`
	DeadlineToDiscount    *int            `gorm:"column:deadline_to_discount" json:"deadline_to_discount,omitempty"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ExpiryFrom returns when goods registered at the given time expire. The
// boolean is false when the product has no shelf life.
func (p Product) ExpiryFrom(registered time.Time) (time.Time, bool) {
	if p.ShelfLifeDays == nil {
		return time.Time{}, false
	}
	return registered.AddDate(0, 0, *p.ShelfLifeDays), true
}
