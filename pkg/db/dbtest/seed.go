package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
)

// Product inserts a product after applying opts to a plain default.
func Product(t *testing.T, conn *gorm.DB, opts ...func(*models.Product)) *models.Product {
	t.Helper()
	shelfLife := 7
	product := &models.Product{
		ID:            uuid.New(),
		Name:          "tomatoes",
		BasePrice:     decimal.NewFromInt(10),
		ShelfLifeDays: &shelfLife,
	}
	for _, opt := range opts {
		opt(product)
	}
	create(t, conn, product)
	return product
}

// Warehouse inserts a warehouse with both capacities set.
func Warehouse(t *testing.T, conn *gorm.DB, opts ...func(*models.Warehouse)) *models.Warehouse {
	t.Helper()
	normal, refrigerated := 1000, 500
	warehouse := &models.Warehouse{
		ID:                     uuid.New(),
		Name:                   "central",
		NormalCapacityKg:       &normal,
		RefrigeratedCapacityKg: &refrigerated,
	}
	warehouse.Location.Lat, warehouse.Location.Lng = 40.4168, -3.7038
	for _, opt := range opts {
		opt(warehouse)
	}
	create(t, conn, warehouse)
	return warehouse
}

// Truck inserts an available truck of the given type.
func Truck(t *testing.T, conn *gorm.DB, truckType enums.TruckType, opts ...func(*models.Truck)) *models.Truck {
	t.Helper()
	truck := &models.Truck{ID: uuid.New(), Type: truckType, Status: enums.TruckStatusAvailable}
	for _, opt := range opts {
		opt(truck)
	}
	create(t, conn, truck)
	return truck
}

// Record inserts an in-stock good-quality record registered at registered.
// Fields are stored as given; lifecycle rules are not applied.
func Record(t *testing.T, conn *gorm.DB, product *models.Product, warehouse *models.Warehouse, registered time.Time, opts ...func(*models.StockRecord)) *models.StockRecord {
	t.Helper()
	reg := registered.UTC()
	record := &models.StockRecord{
		ID:               uuid.New(),
		ProductID:        product.ID,
		SupplierID:       uuid.New(),
		QuantityKg:       decimal.NewFromInt(25),
		Quality:          enums.QualityGood,
		Status:           enums.StockStatusInStock,
		RegistrationDate: &reg,
		Version:          1,
	}
	if warehouse != nil {
		record.WarehouseID = &warehouse.ID
	}
	if expiry, ok := product.ExpiryFrom(reg); ok {
		record.ExpiresAt = &expiry
	}
	for _, opt := range opts {
		opt(record)
	}
	create(t, conn, record)
	return record
}

func create(t *testing.T, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
