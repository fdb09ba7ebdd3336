// Package pricing computes the price a buyer pays for a stock record.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// DaysUntilExpiry returns whole days left before the record expires, never
// negative. Without a registration date the full shelf life is assumed. The
// boolean is false when the product has no shelf life.
func DaysUntilExpiry(product models.Product, record models.StockRecord, now time.Time) (int, bool) {
	if product.ShelfLifeDays == nil {
		return 0, false
	}
	if record.RegistrationDate == nil {
		return *product.ShelfLifeDays, true
	}
	expiry, _ := product.ExpiryFrom(record.RegistrationDate.UTC())
	days := int(math.Floor(expiry.Sub(now.UTC()).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return days, true
}

// Discounted reports whether the product's discount applies to the record.
func Discounted(product models.Product, record models.StockRecord, now time.Time) bool {
	if record.Quality == enums.QualitySubOptimal {
		return true
	}
	if product.DeadlineToDiscount == nil {
		return false
	}
	days, ok := DaysUntilExpiry(product, record, now)
	return ok && days < *product.DeadlineToDiscount
}

// EffectivePrice returns the base price, minus the product discount when it
// applies, rounded to cents.
func EffectivePrice(product models.Product, record models.StockRecord, now time.Time) decimal.Decimal {
	price := product.BasePrice
	if Discounted(product, record, now) && product.DiscountPercentage > 0 {
		factor := hundred.Sub(decimal.NewFromInt(int64(product.DiscountPercentage))).Div(hundred)
		price = price.Mul(factor)
	}
	return price.Round(2)
}
