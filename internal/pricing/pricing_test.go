package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func registered(daysAgo int) *time.Time {
	t := now.AddDate(0, 0, -daysAgo)
	return &t
}

func TestEffectivePrice(t *testing.T) {
	product := models.Product{
		BasePrice:          decimal.RequireFromString("12.50"),
		DiscountPercentage: 20,
		ShelfLifeDays:      intPtr(10),
		DeadlineToDiscount: intPtr(3),
	}

	cases := map[string]struct {
		record models.StockRecord
		want   string
	}{
		"fresh good record pays base":          {models.StockRecord{Quality: enums.QualityGood, RegistrationDate: registered(1)}, "12.5"},
		"sub optimal is always discounted":     {models.StockRecord{Quality: enums.QualitySubOptimal, RegistrationDate: registered(0)}, "10"},
		"inside the discount window":           {models.StockRecord{Quality: enums.QualityGood, RegistrationDate: registered(8)}, "10"},
		"exactly at the deadline is full":      {models.StockRecord{Quality: enums.QualityGood, RegistrationDate: registered(7)}, "12.5"},
		"no registration uses full shelf life": {models.StockRecord{Quality: enums.QualityGood}, "12.5"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := EffectivePrice(product, tc.record, now)
			require.Truef(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestEffectivePriceRoundsToCents(t *testing.T) {
	product := models.Product{BasePrice: decimal.RequireFromString("9.99"), DiscountPercentage: 33}
	got := EffectivePrice(product, models.StockRecord{Quality: enums.QualitySubOptimal}, now)
	require.Equal(t, "6.69", got.StringFixed(2))
}

func TestNoShelfLifeOnlyQualityDiscounts(t *testing.T) {
	product := models.Product{BasePrice: decimal.NewFromInt(4), DiscountPercentage: 50, DeadlineToDiscount: intPtr(5)}

	require.False(t, Discounted(product, models.StockRecord{Quality: enums.QualityGood, RegistrationDate: registered(100)}, now))
	require.True(t, Discounted(product, models.StockRecord{Quality: enums.QualitySubOptimal}, now))
}

func TestDaysUntilExpiryClampsAtZero(t *testing.T) {
	product := models.Product{ShelfLifeDays: intPtr(2)}
	days, ok := DaysUntilExpiry(product, models.StockRecord{RegistrationDate: registered(5)}, now)
	require.True(t, ok)
	require.Zero(t, days)

	_, ok = DaysUntilExpiry(models.Product{}, models.StockRecord{}, now)
	require.False(t, ok)
}
