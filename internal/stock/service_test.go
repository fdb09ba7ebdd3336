package stock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/lifecycle"
	"github.com/angelmondragon/freshroute-backend/internal/products"
	"github.com/angelmondragon/freshroute-backend/internal/warehouses"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
)

var start = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type approvals map[[2]uuid.UUID]bool

func (a approvals) IsApproved(_ context.Context, supplierID, productID uuid.UUID) (bool, error) {
	return a[[2]uuid.UUID{supplierID, productID}], nil
}

type fixture struct {
	svc       Service
	writer    *Writer
	conn      *gorm.DB
	clock     *clock.Manual
	approvals approvals
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	clk := clock.NewManual(start)
	writer, err := NewWriter(lifecycle.New(nil), outbox.NewService(outbox.NewRepository(conn), logg), clk, logg)
	require.NoError(t, err)

	f := &fixture{writer: writer, conn: conn, clock: clk, approvals: approvals{}}
	f.svc, err = NewService(ServiceParams{
		Repo:           NewRepository(conn),
		DB:             db.Wrap(conn),
		Writer:         writer,
		Products:       products.NewRepository(conn),
		Warehouses:     warehouses.NewRepository(conn),
		Quotes:         f.approvals,
		Clock:          clk,
		Logger:         logg,
		NearExpiryDays: 3,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) approve(supplierID, productID uuid.UUID) {
	f.approvals[[2]uuid.UUID{supplierID, productID}] = true
}

func (f *fixture) eventTypes(t *testing.T, id uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", id).Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func registerInput(product *models.Product, warehouse *models.Warehouse, classification enums.Classification) RegisterInput {
	return RegisterInput{
		SupplierID:     uuid.New(),
		ProductID:      product.ID,
		WarehouseID:    &warehouse.ID,
		QuantityKg:     decimal.NewFromInt(40),
		Classification: classification,
	}
}

func TestRegisterGoodRecord(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	input := registerInput(product, warehouse, enums.ClassificationGood)
	f.approve(input.SupplierID, product.ID)

	record, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusInStock, record.Status)
	require.Equal(t, enums.QualityGood, record.Quality)
	require.Equal(t, warehouse.ID, *record.WarehouseID)
	require.True(t, record.ExpiresAt.Equal(start.AddDate(0, 0, 7)))
	require.Equal(t, 1, record.Version)
	require.Equal(t, []enums.OutboxEventType{enums.EventStockRegistered}, f.eventTypes(t, record.ID))
}

func TestRegisterBadClassificationIsDiscarded(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	input := registerInput(product, warehouse, enums.ClassificationBad)
	f.approve(input.SupplierID, product.ID)

	record, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDiscarded, record.Status)
	require.Nil(t, record.WarehouseID)
	require.ElementsMatch(t, []enums.OutboxEventType{enums.EventStockRegistered, enums.EventStockDiscarded}, f.eventTypes(t, record.ID))
}

func TestRegisterZeroShelfLifeDiscardsImmediately(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn, func(p *models.Product) {
		zero := 0
		p.ShelfLifeDays = &zero
	})
	warehouse := dbtest.Warehouse(t, f.conn)
	input := registerInput(product, warehouse, enums.ClassificationGood)
	f.approve(input.SupplierID, product.ID)

	record, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDiscarded, record.Status)
	require.Equal(t, enums.QualityBad, record.Quality)
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.Product(t, f.conn)
	chilled := dbtest.Product(t, f.conn, func(p *models.Product) { p.RequiresRefrigeration = true })
	ambientOnly := dbtest.Warehouse(t, f.conn, func(w *models.Warehouse) { w.RefrigeratedCapacityKg = nil })
	warehouse := dbtest.Warehouse(t, f.conn)

	wrong := registerInput(product, warehouse, enums.ClassificationWrongProduct)
	f.approve(wrong.SupplierID, product.ID)
	_, err := f.svc.Register(ctx, wrong)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	unapproved := registerInput(product, warehouse, enums.ClassificationGood)
	_, err = f.svc.Register(ctx, unapproved)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden), "got %v", err)

	missingWarehouse := registerInput(product, warehouse, enums.ClassificationGood)
	other := uuid.New()
	missingWarehouse.WarehouseID = &other
	f.approve(missingWarehouse.SupplierID, product.ID)
	_, err = f.svc.Register(ctx, missingWarehouse)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeReferenceNotFound), "got %v", err)

	warm := registerInput(chilled, ambientOnly, enums.ClassificationGood)
	f.approve(warm.SupplierID, chilled.ID)
	_, err = f.svc.Register(ctx, warm)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.StockRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDiscardedRecordCannotReturnToStock(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	record := dbtest.Record(t, f.conn, product, nil, start, func(r *models.StockRecord) {
		r.Status = enums.StockStatusDiscarded
		r.Quality = enums.QualityBad
	})

	inStock := enums.StockStatusInStock
	_, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Status: &inStock})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)
}

func TestUpdateAfterExpiryDiscards(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	record := dbtest.Record(t, f.conn, product, warehouse, start)

	f.clock.Advance(8 * 24 * time.Hour)
	qty := decimal.NewFromInt(10)
	updated, err := f.svc.Update(context.Background(), record.ID, UpdateInput{QuantityKg: &qty})
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDiscarded, updated.Status)
	require.Equal(t, enums.QualityBad, updated.Quality)
	require.Nil(t, updated.WarehouseID)
	require.Equal(t, 2, updated.Version)
}

func TestSoldStampsSaleDateAndClearsWarehouse(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	record := dbtest.Record(t, f.conn, product, warehouse, start)

	sold := enums.StockStatusSold
	updated, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Status: &sold})
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusSold, updated.Status)
	require.Nil(t, updated.WarehouseID)
	require.NotNil(t, updated.SaleDate)
	require.Equal(t, []enums.OutboxEventType{enums.EventStockStatusChanged}, f.eventTypes(t, record.ID))
}

func TestReservedRecordCannotMoveWarehouseOrBeDonated(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	other := dbtest.Warehouse(t, f.conn)
	orderID := uuid.New()
	record := dbtest.Record(t, f.conn, product, warehouse, start, func(r *models.StockRecord) {
		r.ReservedOrderID = &orderID
	})

	_, err := f.svc.Update(context.Background(), record.ID, UpdateInput{WarehouseID: &other.ID})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeRecordUnavailable), "got %v", err)

	_, err = f.svc.Donate(context.Background(), record.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeRecordUnavailable), "got %v", err)
}

func TestDonateAndDiscard(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	first := dbtest.Record(t, f.conn, product, warehouse, start)
	second := dbtest.Record(t, f.conn, product, warehouse, start)

	donated, err := f.svc.Donate(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDonated, donated.Status)
	require.Nil(t, donated.WarehouseID)

	discarded, err := f.svc.Discard(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDiscarded, discarded.Status)
	require.Equal(t, enums.QualityBad, discarded.Quality)

	again, err := f.svc.Discard(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, discarded.Version, again.Version)
}

func TestNearExpirationWindow(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	soon := dbtest.Record(t, f.conn, product, warehouse, start.AddDate(0, 0, -5))
	dbtest.Record(t, f.conn, product, warehouse, start)
	dbtest.Record(t, f.conn, product, nil, start.AddDate(0, 0, -6), func(r *models.StockRecord) {
		r.Status = enums.StockStatusDiscarded
		r.Quality = enums.QualityBad
	})

	rows, err := f.svc.NearExpiration(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, soon.ID, rows[0].ID)

	wide := 10
	rows, err = f.svc.NearExpiration(context.Background(), &wide)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestAvailableListsPricedSelectableRecords(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn, func(p *models.Product) {
		deadline := 3
		p.DeadlineToDiscount = &deadline
		p.DiscountPercentage = 20
	})
	warehouse := dbtest.Warehouse(t, f.conn)
	fresh := dbtest.Record(t, f.conn, product, warehouse, start)
	ageing := dbtest.Record(t, f.conn, product, warehouse, start.AddDate(0, 0, -5))
	orderID := uuid.New()
	dbtest.Record(t, f.conn, product, warehouse, start, func(r *models.StockRecord) { r.ReservedOrderID = &orderID })
	dbtest.Record(t, f.conn, product, warehouse, start.AddDate(0, 0, -10))

	rows, err := f.svc.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	prices := map[uuid.UUID]string{}
	for _, row := range rows {
		prices[row.ID] = row.EffectivePrice.StringFixed(2)
	}
	require.Equal(t, "10.00", prices[fresh.ID])
	require.Equal(t, "8.00", prices[ageing.ID])
}

func TestUpdateDiscardGradesRecordBad(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	record := dbtest.Record(t, f.conn, product, warehouse, start)

	discarded := enums.StockStatusDiscarded
	updated, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Status: &discarded})
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDiscarded, updated.Status)
	require.Equal(t, enums.QualityBad, updated.Quality)
	require.Nil(t, updated.WarehouseID)

	good := enums.QualityGood
	regraded, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Quality: &good})
	require.NoError(t, err)
	require.Equal(t, enums.QualityBad, regraded.Quality)
	require.Equal(t, enums.StockStatusDiscarded, regraded.Status)

	var stored models.StockRecord
	require.NoError(t, f.conn.First(&stored, "id = ?", record.ID).Error)
	require.Equal(t, enums.QualityBad, stored.Quality)
}

func TestReservedRecordStatusEdits(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	warehouse := dbtest.Warehouse(t, f.conn)
	orderID := uuid.New()
	record := dbtest.Record(t, f.conn, product, warehouse, start, func(r *models.StockRecord) {
		r.ReservedOrderID = &orderID
	})

	for _, next := range []enums.StockStatus{enums.StockStatusSold, enums.StockStatusDonated} {
		status := next
		_, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Status: &status})
		require.Truef(t, pkgerrors.Is(err, pkgerrors.CodeRecordUnavailable), "%s: got %v", next, err)
	}

	var stored models.StockRecord
	require.NoError(t, f.conn.First(&stored, "id = ?", record.ID).Error)
	require.Equal(t, enums.StockStatusInStock, stored.Status)
	require.Equal(t, &orderID, stored.ReservedOrderID)

	discarded := enums.StockStatusDiscarded
	updated, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Status: &discarded})
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDiscarded, updated.Status)
	require.Nil(t, updated.ReservedOrderID)
}

func TestDiscardedRecordIsDonatedOnlyThroughDonate(t *testing.T) {
	f := newFixture(t)
	product := dbtest.Product(t, f.conn)
	record := dbtest.Record(t, f.conn, product, nil, start.AddDate(0, 0, -30), func(r *models.StockRecord) {
		r.Status = enums.StockStatusDiscarded
		r.Quality = enums.QualityBad
	})

	donatedStatus := enums.StockStatusDonated
	_, err := f.svc.Update(context.Background(), record.ID, UpdateInput{Status: &donatedStatus})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	donated, err := f.svc.Donate(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusDonated, donated.Status)
	require.Equal(t, enums.QualityBad, donated.Quality)
	require.Nil(t, donated.WarehouseID)
	require.Equal(t, []enums.OutboxEventType{enums.EventStockStatusChanged}, f.eventTypes(t, record.ID))
}
