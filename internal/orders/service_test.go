package orders

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/lifecycle"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
)

var start = time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc          Service
	transitioner *Transitioner
	conn         *gorm.DB
	client       *db.Client
	clock        *clock.Manual
	product      *models.Product
	warehouse    *models.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.Wrap(conn)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	clk := clock.NewManual(start)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	writer, err := stock.NewWriter(lifecycle.New(nil), emitter, clk, logg)
	require.NoError(t, err)
	transitioner, err := NewTransitioner(writer, emitter, clk)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Tx:           client,
		Writer:       writer,
		Transitioner: transitioner,
		Outbox:       emitter,
		Clock:        clk,
		Logger:       logg,
	})
	require.NoError(t, err)

	product := dbtest.Product(t, conn, func(p *models.Product) { p.DiscountPercentage = 50 })
	return &fixture{
		svc:          svc,
		transitioner: transitioner,
		conn:         conn,
		client:       client,
		clock:        clk,
		product:      product,
		warehouse:    dbtest.Warehouse(t, conn),
	}
}

func (f *fixture) record(t *testing.T, opts ...func(*models.StockRecord)) *models.StockRecord {
	t.Helper()
	return dbtest.Record(t, f.conn, f.product, f.warehouse, start, opts...)
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.StockRecord {
	t.Helper()
	var record models.StockRecord
	require.NoError(t, f.conn.First(&record, "id = ?", id).Error)
	return record
}

func unavailableIDs(t *testing.T, err error) []uuid.UUID {
	t.Helper()
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeRecordNotAvailable), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	ids, ok := details["record_ids"].([]uuid.UUID)
	require.True(t, ok)
	return ids
}

func TestPlaceOrderReservesAndPrices(t *testing.T) {
	f := newFixture(t)
	good := f.record(t)
	cheap := f.record(t, func(r *models.StockRecord) { r.Quality = enums.QualitySubOptimal })
	buyer := uuid.New()

	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:   buyer,
		RecordIDs: []uuid.UUID{good.ID, cheap.ID, good.ID},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, "15.00", order.TotalAmount.StringFixed(2))
	require.Len(t, order.Items, 2)

	for _, id := range []uuid.UUID{good.ID, cheap.ID} {
		stored := f.reload(t, id)
		require.NotNil(t, stored.ReservedOrderID)
		require.Equal(t, order.ID, *stored.ReservedOrderID)
	}

	loaded, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	require.Equal(t, "15.00", loaded.TotalAmount.StringFixed(2))

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", order.ID, enums.EventOrderCreated).Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestPlaceOrderIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	free := f.record(t)
	otherOrder := uuid.New()
	held := f.record(t, func(r *models.StockRecord) { r.ReservedOrderID = &otherOrder })
	sold := f.record(t, func(r *models.StockRecord) {
		r.Status = enums.StockStatusSold
		r.WarehouseID = nil
	})
	missing := uuid.New()

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:   uuid.New(),
		RecordIDs: []uuid.UUID{free.ID, held.ID, sold.ID, missing},
	})
	require.ElementsMatch(t, []uuid.UUID{held.ID, sold.ID, missing}, unavailableIDs(t, err))

	require.Nil(t, f.reload(t, free.ID).ReservedOrderID)
	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestPlaceOrderRejectsExpiredRecord(t *testing.T) {
	f := newFixture(t)
	record := f.record(t)
	f.clock.Advance(10 * 24 * time.Hour)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{record.ID}})
	require.Equal(t, []uuid.UUID{record.ID}, unavailableIDs(t, err))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New()})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = f.svc.PlaceOrder(context.Background(), PlaceOrderInput{RecordIDs: []uuid.UUID{uuid.New()}})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderRejectsNilRecordID(t *testing.T) {
	f := newFixture(t)
	record := f.record(t)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:   uuid.New(),
		RecordIDs: []uuid.UUID{record.ID, uuid.Nil},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
	require.Nil(t, f.reload(t, record.ID).ReservedOrderID)

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestConcurrentOrdersReserveOnce(t *testing.T) {
	f := newFixture(t)
	shared := f.record(t)

	const buyers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{shared.ID}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeRecordNotAvailable), "got %v", err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, succeeded)
}

func TestCancelReleasesReservations(t *testing.T) {
	f := newFixture(t)
	record := f.record(t)
	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{record.ID}})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Nil(t, f.reload(t, record.ID).ReservedOrderID)

	_, err = f.svc.Cancel(context.Background(), order.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	_, err = f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{record.ID}})
	require.NoError(t, err)
}

func TestCompletingOrderSellsRecords(t *testing.T) {
	f := newFixture(t)
	record := f.record(t)
	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{record.ID}})
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)

	err = f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := f.transitioner.Transition(context.Background(), tx, order.ID, enums.OrderStatusCompleted)
		return err
	})
	require.NoError(t, err)

	stored := f.reload(t, record.ID)
	require.Equal(t, enums.StockStatusSold, stored.Status)
	require.Nil(t, stored.WarehouseID)
	require.NotNil(t, stored.SaleDate)
}

func TestExpirePendingCancelsOnlyStalePendingOrders(t *testing.T) {
	f := newFixture(t)
	stale := f.record(t)
	confirmed := f.record(t)
	staleOrder, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{stale.ID}})
	require.NoError(t, err)
	confirmedOrder, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: uuid.New(), RecordIDs: []uuid.UUID{confirmed.ID}})
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), confirmedOrder.ID)
	require.NoError(t, err)

	f.clock.Advance(49 * time.Hour)
	n, err := f.svc.ExpirePending(context.Background(), f.clock.Now().Add(-48*time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	loaded, err := f.svc.Get(context.Background(), staleOrder.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, loaded.Status)
	require.Nil(t, f.reload(t, stale.ID).ReservedOrderID)
	require.NotNil(t, f.reload(t, confirmed.ID).ReservedOrderID)
}
