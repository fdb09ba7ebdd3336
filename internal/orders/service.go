package orders

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/pricing"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Service is the order fulfillment gate: it reserves records for buyers and
// drives the order lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	Confirm(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Order], error)
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type PlaceOrderInput struct {
	BuyerID   uuid.UUID
	RecordIDs []uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo         *Repository
	Tx           txRunner
	Writer       *stock.Writer
	Transitioner *Transitioner
	Outbox       outbox.Emitter
	Clock        clock.Clock
	Logger       *logger.Logger
}

type service struct {
	repo         *Repository
	tx           txRunner
	writer       *stock.Writer
	transitioner *Transitioner
	outbox       outbox.Emitter
	clock        clock.Clock
	logg         *logger.Logger
}

var errRecordHeld = errors.New("record not selectable")

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("orders repository required")
	case params.Tx == nil:
		return nil, errors.New("transaction runner required")
	case params.Writer == nil:
		return nil, errors.New("stock writer required")
	case params.Transitioner == nil:
		return nil, errors.New("order transitioner required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		writer:       params.Writer,
		transitioner: params.Transitioner,
		outbox:       params.Outbox,
		clock:        clk,
		logg:         params.Logger,
	}, nil
}

// PlaceOrder reserves every requested record or none. Records are locked in
// ascending id order so concurrent orders over overlapping sets cannot
// deadlock.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer_id is required")
	}
	ids, err := sortedUnique(input.RecordIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one record_id is required")
	}

	now := s.clock.Now()
	order := &models.Order{
		ID:          uuid.New(),
		BuyerID:     input.BuyerID,
		OrderDate:   now,
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.Zero,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		var unavailable []uuid.UUID
		items := make([]models.OrderItem, 0, len(ids))
		total := decimal.Zero
		for _, id := range ids {
			var product *models.Product
			result, err := s.writer.Mutate(ctx, tx, id, func(record *models.StockRecord, p *models.Product) error {
				if !record.Selectable() || p == nil {
					return errRecordHeld
				}
				product = p
				record.ReservedOrderID = &order.ID
				return nil
			})
			switch {
			case err == nil:
			case errors.Is(err, errRecordHeld), pkgerrors.Is(err, pkgerrors.CodeNotFound):
				unavailable = append(unavailable, id)
				continue
			default:
				return err
			}
			// the engine may have discarded an expired record instead
			if result.Record.Status != enums.StockStatusInStock || result.Record.ReservedOrderID == nil {
				unavailable = append(unavailable, id)
				continue
			}
			price := pricing.EffectivePrice(*product, result.Record, now)
			items = append(items, models.OrderItem{OrderID: order.ID, RecordID: id, PriceAtPurchase: price})
			total = total.Add(price)
		}
		if len(unavailable) > 0 {
			return pkgerrors.New(pkgerrors.CodeRecordNotAvailable, "some records are not available").
				WithDetails(map[string]any{"record_ids": unavailable})
		}

		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order items")
		}
		if err := repo.UpdateTotal(ctx, order.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order total")
		}
		order.TotalAmount = total
		order.Items = items

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: outbox.OrderCreated{
				BuyerID:     order.BuyerID,
				RecordIDs:   ids,
				TotalAmount: total.StringFixed(2),
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithEntity(ctx, "order", order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "records", len(ids)), "order.placed")
	return order, nil
}

func (s *service) Confirm(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, enums.OrderStatusConfirmed)
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, enums.OrderStatusCancelled)
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.transitioner.Transition(ctx, tx, orderID, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "order", orderID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", next), "order.status_changed")
	return s.Get(ctx, orderID)
}

// ExpirePending cancels pending orders placed before cutoff and returns how
// many were cancelled. Orders confirmed or cancelled in the meantime are
// skipped.
func (s *service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ids, err := s.repo.PendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending orders")
	}
	cancelled := 0
	for _, id := range ids {
		expired := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
			if err != nil || order.Status != enums.OrderStatusPending {
				return err
			}
			if _, err := s.transitioner.Transition(ctx, tx, id, enums.OrderStatusCancelled); err != nil {
				return err
			}
			expired = true
			return nil
		})
		if err != nil {
			return cancelled, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire pending order")
		}
		if !expired {
			continue
		}
		cancelled++
		s.logg.Info(s.logg.WithEntity(ctx, "order", id.String()), "order.expired")
	}
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Order], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list orders")
	}
	return page, nil
}

func sortedUnique(ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for i, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "record_ids must not contain a nil id").
				WithDetails(map[string]any{"index": i})
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out, nil
}
