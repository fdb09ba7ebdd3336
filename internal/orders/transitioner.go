package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
)

// Transitioner applies order status changes inside a caller's transaction,
// including their effect on the order's stock records. Trips use it to move
// orders through delivery.
type Transitioner struct {
	writer *stock.Writer
	outbox outbox.Emitter
	clock  clock.Clock
}

func NewTransitioner(writer *stock.Writer, emitter outbox.Emitter, clk clock.Clock) (*Transitioner, error) {
	if writer == nil {
		return nil, errors.New("stock writer required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Transitioner{writer: writer, outbox: emitter, clock: clk}, nil
}

// Transition moves the order to next. Cancelling releases the reservations
// still held by the order and is refused while a trip for it is under way;
// completing sells its in-stock records.
func (t *Transitioner) Transition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	repo := NewRepository(tx)
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status transition not allowed").
			WithDetails(map[string]any{"from": order.Status, "to": next})
	}

	if next == enums.OrderStatusCancelled {
		if err := checkNoActiveTrip(ctx, tx, order.ID); err != nil {
			return nil, err
		}
	}

	now := t.clock.Now()
	stamps := map[string]any{}
	switch next {
	case enums.OrderStatusConfirmed:
		stamps["confirmed_at"] = now
		order.ConfirmedAt = &now
	case enums.OrderStatusCompleted:
		stamps["completed_at"] = now
		order.CompletedAt = &now
	case enums.OrderStatusCancelled:
		stamps["cancelled_at"] = now
		order.CancelledAt = &now
	}
	rows, err := repo.UpdateStatus(ctx, order.ID, order.Status, next, stamps)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
	}

	switch next {
	case enums.OrderStatusCancelled:
		err = t.releaseRecords(ctx, tx, order.ID)
	case enums.OrderStatusCompleted:
		err = t.sellRecords(ctx, tx, order.ID)
	}
	if err != nil {
		return nil, err
	}

	prev := order.Status
	order.Status = next
	event := outbox.StatusChange(enums.EventOrderStatusChanged, enums.AggregateOrder, order.ID, string(prev), string(next), now)
	if err := t.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return order, nil
}

// checkNoActiveTrip rejects cancelling an order a truck is still carrying.
func checkNoActiveTrip(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	var tripIDs []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&models.Trip{}).
		Where("order_id = ? AND status <> ?", orderID, enums.TripStatusDelivered).
		Pluck("id", &tripIDs).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order trips")
	}
	if len(tripIDs) > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has an active trip").
			WithDetails(map[string]any{"order_id": orderID, "trip_ids": tripIDs})
	}
	return nil
}

func (t *Transitioner) releaseRecords(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return t.eachRecord(ctx, tx, orderID, func(record *models.StockRecord, _ *models.Product) error {
		if record.ReservedOrderID != nil && *record.ReservedOrderID == orderID {
			record.ReservedOrderID = nil
		}
		return nil
	})
}

func (t *Transitioner) sellRecords(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return t.eachRecord(ctx, tx, orderID, func(record *models.StockRecord, _ *models.Product) error {
		held := record.ReservedOrderID == nil || *record.ReservedOrderID == orderID
		if record.Status == enums.StockStatusInStock && held {
			record.Status = enums.StockStatusSold
		}
		return nil
	})
}

func (t *Transitioner) eachRecord(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, fn stock.Mutation) error {
	records, err := stock.NewRepository(tx).ListByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order records")
	}
	for _, record := range records {
		if _, err := t.writer.Mutate(ctx, tx, record.ID, fn); err != nil {
			return err
		}
	}
	return nil
}
