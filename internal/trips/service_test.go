package trips

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/lifecycle"
	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

var (
	start  = time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC)
	depot  = types.Location{Lat: 40.4168, Lng: -3.7038}
	market = types.Location{Lat: 40.4530, Lng: -3.6883}
)

type fixture struct {
	svc    Service
	orders orders.Service
	conn   *gorm.DB
	clock  *clock.Manual
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
	transitioner, err := orders.NewTransitioner(writer, emitter, clk)
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(conn),
		Tx:           client,
		Writer:       writer,
		Transitioner: transitioner,
		Outbox:       emitter,
		Clock:        clk,
		Logger:       logg,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:            NewRepository(conn),
		DB:              client,
		Orders:          transitioner,
		Outbox:          emitter,
		Clock:           clk,
		Logger:          logg,
		AverageSpeedKPH: 60,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, orders: orderSvc, conn: conn, clock: clk}
}

// order places an order for one fresh record and optionally confirms it.
func (f *fixture) order(t *testing.T, chilled, confirm bool) (*models.Order, *models.StockRecord) {
	t.Helper()
	product := dbtest.Product(t, f.conn, func(p *models.Product) { p.RequiresRefrigeration = chilled })
	record := dbtest.Record(t, f.conn, product, dbtest.Warehouse(t, f.conn), start)
	order, err := f.orders.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		BuyerID:   uuid.New(),
		RecordIDs: []uuid.UUID{record.ID},
	})
	require.NoError(t, err)
	if confirm {
		order, err = f.orders.Confirm(context.Background(), order.ID)
		require.NoError(t, err)
	}
	return order, record
}

func (f *fixture) create(t *testing.T, orderID, truckID uuid.UUID) *models.Trip {
	t.Helper()
	trip, err := f.svc.Create(context.Background(), CreateInput{
		OrderID:     orderID,
		TruckID:     truckID,
		Origin:      depot,
		Destination: market,
	})
	require.NoError(t, err)
	return trip
}

func (f *fixture) truck(t *testing.T, id uuid.UUID) models.Truck {
	t.Helper()
	var truck models.Truck
	require.NoError(t, f.conn.First(&truck, "id = ?", id).Error)
	return truck
}

func TestTripDeliveryCompletesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, record := f.order(t, false, true)
	truck := dbtest.Truck(t, f.conn, enums.TruckTypeNormal)

	trip := f.create(t, order.ID, truck.ID)
	require.Equal(t, enums.TripStatusWaiting, trip.Status)
	require.NotNil(t, trip.EstimatedMinutes)
	require.Equal(t, enums.TruckStatusInService, f.truck(t, truck.ID).Status)

	for _, next := range []enums.TripStatus{enums.TripStatusCollecting, enums.TripStatusLoaded, enums.TripStatusDelivering} {
		_, err := f.svc.Transition(ctx, trip.ID, next)
		require.NoError(t, err)
	}
	inTransit, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusInTransit, inTransit.Status)

	f.clock.Advance(95 * time.Minute)
	delivered, err := f.svc.Transition(ctx, trip.ID, enums.TripStatusDelivered)
	require.NoError(t, err)
	require.Equal(t, enums.TripStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.EndDate)
	require.Equal(t, 95, *delivered.ActualMinutes)

	completed, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCompleted, completed.Status)

	var stored models.StockRecord
	require.NoError(t, f.conn.First(&stored, "id = ?", record.ID).Error)
	require.Equal(t, enums.StockStatusSold, stored.Status)
	require.NotNil(t, stored.SaleDate)
	require.Equal(t, enums.TruckStatusAvailable, f.truck(t, truck.ID).Status)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", trip.ID, enums.EventTripStatusChanged).Count(&events).Error)
	require.EqualValues(t, 5, events)
}

func TestTripPauseResumesToPriorState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, _ := f.order(t, false, true)
	trip := f.create(t, order.ID, dbtest.Truck(t, f.conn, enums.TruckTypeNormal).ID)

	_, err := f.svc.Transition(ctx, trip.ID, enums.TripStatusPaused)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "waiting trips cannot pause")

	_, err = f.svc.Transition(ctx, trip.ID, enums.TripStatusCollecting)
	require.NoError(t, err)
	paused, err := f.svc.Transition(ctx, trip.ID, enums.TripStatusPaused)
	require.NoError(t, err)
	require.Equal(t, enums.TripStatusCollecting, *paused.PausedFrom)

	_, err = f.svc.Transition(ctx, trip.ID, enums.TripStatusLoaded)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition))

	resumed, err := f.svc.Transition(ctx, trip.ID, enums.TripStatusCollecting)
	require.NoError(t, err)
	require.Equal(t, enums.TripStatusCollecting, resumed.Status)
	require.Nil(t, resumed.PausedFrom)

	stored, err := f.svc.Get(ctx, trip.ID)
	require.NoError(t, err)
	require.Nil(t, stored.PausedFrom)
	require.NotNil(t, stored.StartDate)
}

func TestCreateTripRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending, _ := f.order(t, false, false)
	chilled, _ := f.order(t, true, true)
	normal := dbtest.Truck(t, f.conn, enums.TruckTypeNormal)

	_, err := f.svc.Create(ctx, CreateInput{OrderID: pending.ID, TruckID: normal.ID, Origin: depot, Destination: market})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	_, err = f.svc.Create(ctx, CreateInput{OrderID: uuid.New(), TruckID: normal.ID, Origin: depot, Destination: market})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeReferenceNotFound), "got %v", err)

	_, err = f.svc.Create(ctx, CreateInput{OrderID: chilled.ID, TruckID: normal.ID, Origin: depot, Destination: market})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeIncompatibleTruck), "got %v", err)

	_, err = f.svc.Create(ctx, CreateInput{
		OrderID:     chilled.ID,
		TruckID:     normal.ID,
		Origin:      types.Location{Lat: 120, Lng: 0},
		Destination: market,
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	cold := dbtest.Truck(t, f.conn, enums.TruckTypeRefrigerated)
	f.create(t, chilled.ID, cold.ID)

	other, _ := f.order(t, false, true)
	_, err = f.svc.Create(ctx, CreateInput{OrderID: other.ID, TruckID: cold.ID, Origin: depot, Destination: market})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeTruckBusy), "got %v", err)
}

func TestUpdateLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, _ := f.order(t, false, true)
	truck := dbtest.Truck(t, f.conn, enums.TruckTypeNormal)
	trip := f.create(t, order.ID, truck.ID)

	moved, err := f.svc.UpdateLocation(ctx, trip.ID, market)
	require.NoError(t, err)
	loc, ok := moved.CurrentLocation()
	require.True(t, ok)
	require.Equal(t, market, loc)

	_, err = f.svc.UpdateLocation(ctx, uuid.New(), market)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	for _, next := range []enums.TripStatus{
		enums.TripStatusCollecting, enums.TripStatusLoaded, enums.TripStatusDelivering, enums.TripStatusDelivered,
	} {
		_, err := f.svc.Transition(ctx, trip.ID, next)
		require.NoError(t, err)
	}
	_, err = f.svc.UpdateLocation(ctx, trip.ID, depot)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition))
}

func TestOrderWithActiveTripCannotBeCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, record := f.order(t, false, true)
	truck := dbtest.Truck(t, f.conn, enums.TruckTypeNormal)
	trip := f.create(t, order.ID, truck.ID)

	_, err := f.orders.Cancel(ctx, order.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	require.Equal(t, &order.ID, f.reloadRecord(t, record.ID).ReservedOrderID)

	for _, next := range []enums.TripStatus{enums.TripStatusCollecting, enums.TripStatusLoaded, enums.TripStatusDelivering, enums.TripStatusDelivered} {
		_, err := f.svc.Transition(ctx, trip.ID, next)
		require.NoError(t, err)
	}
	require.Equal(t, enums.TruckStatusAvailable, f.truck(t, truck.ID).Status)

	_, err = f.orders.Cancel(ctx, order.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)
}

func TestConfirmedOrderWithoutTripCanBeCancelled(t *testing.T) {
	f := newFixture(t)
	order, record := f.order(t, false, true)

	cancelled, err := f.orders.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.Nil(t, f.reloadRecord(t, record.ID).ReservedOrderID)
}

func (f *fixture) reloadRecord(t *testing.T, id uuid.UUID) models.StockRecord {
	t.Helper()
	var record models.StockRecord
	require.NoError(t, f.conn.First(&record, "id = ?", id).Error)
	return record
}
