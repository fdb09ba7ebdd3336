package warehouses

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

func newService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, conn
}

func intPtr(v int) *int { return &v }

func TestCreateWarehouseValidatesLocation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), CreateInput{Name: "north", Location: types.Location{Lat: 120, Lng: 0}})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	created, err := svc.Create(context.Background(), CreateInput{
		Name:                   "north",
		Location:               types.Location{Lat: 40.4, Lng: -3.7},
		RefrigeratedCapacityKg: intPtr(500),
	})
	require.NoError(t, err)

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.InDelta(t, 40.4, loaded.Location.Lat, 1e-9)
	require.True(t, loaded.Stores(true))
}

func TestUpdateWarehouse(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateInput{Name: "south", Location: types.Location{Lat: 1, Lng: 1}})
	require.NoError(t, err)
	require.False(t, created.Stores(true))

	name := "south annex"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Name: &name, NormalCapacityKg: intPtr(100)})
	require.NoError(t, err)
	require.Equal(t, "south annex", updated.Name)
	require.Equal(t, 100, *updated.NormalCapacityKg)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Name: &name})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestUtilizationSplitsByRefrigeration(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	warehouse, err := svc.Create(ctx, CreateInput{
		Name:                   "hub",
		Location:               types.Location{Lat: 0, Lng: 0},
		NormalCapacityKg:       intPtr(10),
		RefrigeratedCapacityKg: intPtr(100),
	})
	require.NoError(t, err)

	cold := models.Product{ID: uuid.New(), Name: "fish", BasePrice: decimal.NewFromInt(1), RequiresRefrigeration: true}
	dry := models.Product{ID: uuid.New(), Name: "potatoes", BasePrice: decimal.NewFromInt(1)}
	require.NoError(t, conn.Create(&cold).Error)
	require.NoError(t, conn.Create(&dry).Error)

	insert := func(productID uuid.UUID, qty int64, status enums.StockStatus) {
		var wh *uuid.UUID
		if status == enums.StockStatusInStock {
			wh = &warehouse.ID
		}
		rec := models.StockRecord{
			ID: uuid.New(), ProductID: productID, SupplierID: uuid.New(), WarehouseID: wh,
			QuantityKg: decimal.NewFromInt(qty), Quality: enums.QualityGood, Status: status,
		}
		require.NoError(t, conn.Create(&rec).Error)
	}
	insert(cold.ID, 30, enums.StockStatusInStock)
	insert(cold.ID, 20, enums.StockStatusInStock)
	insert(dry.ID, 12, enums.StockStatusInStock)
	insert(dry.ID, 50, enums.StockStatusSold)

	util, err := svc.Utilization(ctx, warehouse.ID)
	require.NoError(t, err)
	require.True(t, util.RefrigeratedStoredKg.Equal(decimal.NewFromInt(50)), "refrigerated %s", util.RefrigeratedStoredKg)
	require.True(t, util.NormalStoredKg.Equal(decimal.NewFromInt(12)), "normal %s", util.NormalStoredKg)
	require.True(t, util.OverCapacity)
}
