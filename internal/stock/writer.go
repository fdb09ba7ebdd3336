package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/lifecycle"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
)

// ErrContention marks a guarded write that lost against a concurrent update.
var ErrContention = errors.New("stock record modified concurrently")

// Mutation edits a copy of the locked record. product is nil when the
// record's product no longer exists.
type Mutation func(record *models.StockRecord, product *models.Product) error

// Result describes a completed write.
type Result struct {
	Previous models.StockRecord
	Record   models.StockRecord
	Decision lifecycle.Decision
	// Changed is false when the evaluated record equals the stored one and
	// nothing was written.
	Changed bool
}

// Writer is the only code path that writes stock record status, quality or
// warehouse. Every write runs through the lifecycle engine.
type Writer struct {
	engine *lifecycle.Engine
	outbox outbox.Emitter
	clock  clock.Clock
	logg   *logger.Logger
}

func NewWriter(engine *lifecycle.Engine, emitter outbox.Emitter, clk clock.Clock, logg *logger.Logger) (*Writer, error) {
	if engine == nil {
		return nil, errors.New("lifecycle engine required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Writer{engine: engine, outbox: emitter, clock: clk, logg: logg}, nil
}

// Mutate locks the record inside tx, applies fn and the lifecycle rules, and
// persists the outcome with a version guard.
func (w *Writer) Mutate(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, fn Mutation) (Result, error) {
	repo := NewRepository(tx)
	prev, err := repo.FindByIDForUpdate(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found").
				WithDetails(map[string]any{"record_id": recordID})
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock record")
	}
	product, err := loadProduct(ctx, tx, prev.ProductID)
	if err != nil {
		return Result{}, err
	}

	proposed := *prev
	if fn != nil {
		if err := fn(&proposed, product); err != nil {
			return Result{}, err
		}
	}

	now := w.clock.Now()
	decision, err := w.engine.Apply(prev, proposed, product, now)
	if err != nil {
		return Result{}, err
	}
	result := Result{Previous: *prev, Record: decision.Record, Decision: decision}
	if sameState(*prev, decision.Record) {
		return result, nil
	}

	rows, err := repo.updateGuarded(ctx, &result.Record, prev.Version, now)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update stock record")
	}
	if rows == 0 {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeRecordUnavailable, ErrContention, "stock record changed, retry").
			WithDetails(map[string]any{"record_id": recordID})
	}
	result.Record.Version = prev.Version + 1
	result.Record.UpdatedAt = now
	result.Changed = true

	if err := w.emit(ctx, tx, prev, result.Record, decision, now); err != nil {
		return Result{}, err
	}
	return result, nil
}

// Insert evaluates and stores a new record.
func (w *Writer) Insert(ctx context.Context, tx *gorm.DB, proposed models.StockRecord) (Result, error) {
	product, err := loadProduct(ctx, tx, proposed.ProductID)
	if err != nil {
		return Result{}, err
	}
	now := w.clock.Now()
	decision, err := w.engine.Apply(nil, proposed, product, now)
	if err != nil {
		return Result{}, err
	}
	record := decision.Record
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Version = 1
	if err := NewRepository(tx).insert(ctx, &record); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock record")
	}

	if err := w.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockRegistered,
		AggregateType: enums.AggregateStockRecord,
		AggregateID:   record.ID,
		Data: outbox.StockRegistered{
			ProductID:   record.ProductID,
			SupplierID:  record.SupplierID,
			WarehouseID: record.WarehouseID,
			Status:      string(record.Status),
			Quality:     string(record.Quality),
		},
		OccurredAt: now,
	}); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock event")
	}
	if decision.Discarded(nil) {
		if err := w.emitDiscarded(ctx, tx, record.ID, proposed.WarehouseID, decision.Rule, now); err != nil {
			return Result{}, err
		}
	}
	return Result{Record: record, Decision: decision, Changed: true}, nil
}

func (w *Writer) emit(ctx context.Context, tx *gorm.DB, prev *models.StockRecord, next models.StockRecord, decision lifecycle.Decision, now time.Time) error {
	if decision.Discarded(prev) {
		return w.emitDiscarded(ctx, tx, next.ID, prev.WarehouseID, decision.Rule, now)
	}
	if prev.Status == next.Status {
		return nil
	}
	event := outbox.StatusChange(enums.EventStockStatusChanged, enums.AggregateStockRecord, next.ID, string(prev.Status), string(next.Status), now)
	if err := w.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock event")
	}
	return nil
}

func (w *Writer) emitDiscarded(ctx context.Context, tx *gorm.DB, id uuid.UUID, warehouseID *uuid.UUID, rule lifecycle.Rule, now time.Time) error {
	if rule == lifecycle.RuleNone {
		rule = "explicit"
	}
	err := w.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockDiscarded,
		AggregateType: enums.AggregateStockRecord,
		AggregateID:   id,
		Data:          outbox.StockDiscarded{Rule: string(rule), WarehouseID: warehouseID},
		OccurredAt:    now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock event")
	}
	if w.logg != nil {
		logCtx := w.logg.WithEntity(ctx, "stock_record", id.String())
		w.logg.Info(w.logg.WithField(logCtx, "rule", string(rule)), "stock.discarded")
	}
	return nil
}

func loadProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

func sameState(a, b models.StockRecord) bool {
	return a.Status == b.Status &&
		a.Quality == b.Quality &&
		a.QuantityKg.Equal(b.QuantityKg) &&
		sameID(a.WarehouseID, b.WarehouseID) &&
		sameID(a.ReservedOrderID, b.ReservedOrderID) &&
		sameID(a.ReservedTransferID, b.ReservedTransferID) &&
		sameTime(a.ExpiresAt, b.ExpiresAt) &&
		sameTime(a.SaleDate, b.SaleDate)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
