package transfers

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/internal/trucks"
	"github.com/angelmondragon/freshroute-backend/internal/warehouses"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Service orchestrates moving a stock record between warehouses.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.WarehouseTransfer, error)
	AssignTruck(ctx context.Context, transferID, truckID uuid.UUID) (*models.WarehouseTransfer, error)
	AutoAssign(ctx context.Context, transferID uuid.UUID, truckType *enums.TruckType) (*models.WarehouseTransfer, error)
	Advance(ctx context.Context, transferID uuid.UUID) (*models.WarehouseTransfer, error)
	Cancel(ctx context.Context, transferID uuid.UUID) (*models.WarehouseTransfer, error)
	Get(ctx context.Context, transferID uuid.UUID) (*models.WarehouseTransfer, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.WarehouseTransfer], error)
}

type CreateInput struct {
	RecordID               uuid.UUID
	OriginWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Reason                 enums.TransferReason
	Notes                  *string
}

type ServiceParams struct {
	Repo            *Repository
	DB              *db.Client
	Writer          *stock.Writer
	Outbox          outbox.Emitter
	Clock           clock.Clock
	Logger          *logger.Logger
	AverageSpeedKPH float64
}

type service struct {
	repo   *Repository
	db     *db.Client
	writer *stock.Writer
	outbox outbox.Emitter
	clock  clock.Clock
	logg   *logger.Logger
	speed  float64
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("transfer repository required")
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Writer == nil:
		return nil, errors.New("stock writer required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.AverageSpeedKPH <= 0:
		return nil, errors.New("average speed must be positive")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &service{
		repo:   params.Repo,
		db:     params.DB,
		writer: params.Writer,
		outbox: params.Outbox,
		clock:  clk,
		logg:   params.Logger,
		speed:  params.AverageSpeedKPH,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.WarehouseTransfer, error) {
	if input.Reason == "" {
		input.Reason = enums.TransferReasonRestock
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transfer reason")
	}
	if input.OriginWarehouseID == input.DestinationWarehouseID {
		return nil, pkgerrors.New(pkgerrors.CodeSameWarehouse, "origin and destination are the same warehouse")
	}

	var created *models.WarehouseTransfer
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		origin, err := loadWarehouse(ctx, tx, input.OriginWarehouseID)
		if err != nil {
			return err
		}
		destination, err := loadWarehouse(ctx, tx, input.DestinationWarehouseID)
		if err != nil {
			return err
		}
		if _, err := stock.NewRepository(tx).FindByIDForUpdate(ctx, input.RecordID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeReferenceNotFound, "stock record not found").
					WithDetails(map[string]any{"record_id": input.RecordID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock record")
		}

		now := s.clock.Now()
		estimate := EstimateMinutes(origin.Location, destination.Location, s.speed)
		transfer := &models.WarehouseTransfer{
			ID:                     uuid.New(),
			RecordID:               input.RecordID,
			OriginWarehouseID:      origin.ID,
			DestinationWarehouseID: destination.ID,
			Status:                 enums.TransferStatusPending,
			Reason:                 input.Reason,
			EstimatedMinutes:       &estimate,
			RequestedDate:          now,
			Notes:                  input.Notes,
		}

		if err := s.repo.WithTx(tx).Create(ctx, transfer); err != nil {
			if db.IsUniqueViolation(err, ActiveRecordIndex) {
				return pkgerrors.New(pkgerrors.CodeRecordUnavailable, "record already has an active transfer").
					WithDetails(map[string]any{"record_id": input.RecordID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert transfer")
		}

		result, err := s.writer.Mutate(ctx, tx, input.RecordID, func(record *models.StockRecord, product *models.Product) error {
			if !record.Selectable() {
				return pkgerrors.New(pkgerrors.CodeRecordUnavailable, "record is not in stock or already reserved").
					WithDetails(map[string]any{"record_id": record.ID})
			}
			if record.WarehouseID == nil || *record.WarehouseID != origin.ID {
				return pkgerrors.New(pkgerrors.CodeInvalidOrigin, "record is not stored at the origin warehouse").
					WithDetails(map[string]any{"record_id": record.ID, "warehouse_id": record.WarehouseID})
			}
			if product != nil && !destination.Stores(product.RequiresRefrigeration) {
				return pkgerrors.New(pkgerrors.CodeValidation, "destination has no refrigerated capacity")
			}
			record.ReservedTransferID = &transfer.ID
			return nil
		})
		if err != nil {
			return err
		}
		if result.Record.ReservedTransferID == nil {
			return pkgerrors.New(pkgerrors.CodeRecordUnavailable, "record expired").
				WithDetails(map[string]any{"record_id": input.RecordID})
		}

		if err := s.emit(ctx, tx, transfer.ID, "", enums.TransferStatusPending, now); err != nil {
			return err
		}
		created = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithEntity(ctx, "warehouse_transfer", created.ID.String()), "transfer.created")
	return created, nil
}

func (s *service) AssignTruck(ctx context.Context, transferID, truckID uuid.UUID) (*models.WarehouseTransfer, error) {
	return s.assign(ctx, transferID, func(ctx context.Context, tx *gorm.DB, _ *models.WarehouseTransfer, chilled bool) (*models.Truck, error) {
		return trucks.Dispatch(ctx, tx, truckID, chilled)
	})
}

// AutoAssign claims the nearest available truck with a driver to the origin
// warehouse, trying the next nearest when a claim loses a race.
func (s *service) AutoAssign(ctx context.Context, transferID uuid.UUID, truckType *enums.TruckType) (*models.WarehouseTransfer, error) {
	return s.assign(ctx, transferID, func(ctx context.Context, tx *gorm.DB, transfer *models.WarehouseTransfer, chilled bool) (*models.Truck, error) {
		origin, err := loadWarehouse(ctx, tx, transfer.OriginWarehouseID)
		if err != nil {
			return nil, err
		}
		candidates, err := trucks.NewRepository(tx).AvailableWithDriver(ctx, truckType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available trucks")
		}
		for len(candidates) > 0 {
			pick, ok := trucks.Nearest(candidates, origin.Location, chilled)
			if !ok {
				break
			}
			truck, err := trucks.Dispatch(ctx, tx, pick.ID, chilled)
			if err == nil {
				return truck, nil
			}
			if !pkgerrors.Is(err, pkgerrors.CodeTruckBusy) {
				return nil, err
			}
			candidates = without(candidates, pick.ID)
		}
		return nil, pkgerrors.New(pkgerrors.CodeTruckBusy, "no compatible truck available")
	})
}

type truckPicker func(ctx context.Context, tx *gorm.DB, transfer *models.WarehouseTransfer, chilled bool) (*models.Truck, error)

func (s *service) assign(ctx context.Context, transferID uuid.UUID, pick truckPicker) (*models.WarehouseTransfer, error) {
	var assigned *models.WarehouseTransfer
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		transfer, err := s.lockTransfer(ctx, tx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status != enums.TransferStatusPending {
			return invalidTransition(transfer.Status, enums.TransferStatusAssigned)
		}
		chilled, err := recordNeedsRefrigeration(ctx, tx, transfer.RecordID)
		if err != nil {
			return err
		}
		truck, err := pick(ctx, tx, transfer, chilled)
		if err != nil {
			return err
		}

		if err := s.update(ctx, tx, transfer, enums.TransferStatusAssigned, map[string]any{"truck_id": truck.ID}); err != nil {
			return err
		}
		transfer.TruckID = &truck.ID
		assigned = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "warehouse_transfer", transferID.String())
	s.logg.Info(s.logg.WithField(logCtx, "truck_id", assigned.TruckID.String()), "transfer.assigned")
	return assigned, nil
}

// Advance moves an assigned transfer into transit, or completes one in
// transit: the record lands in the destination warehouse and the truck is
// released.
func (s *service) Advance(ctx context.Context, transferID uuid.UUID) (*models.WarehouseTransfer, error) {
	var advanced *models.WarehouseTransfer
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		transfer, err := s.lockTransfer(ctx, tx, transferID)
		if err != nil {
			return err
		}
		next, ok := transfer.Status.Next()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transfer cannot advance").
				WithDetails(map[string]any{"from": transfer.Status})
		}

		now := s.clock.Now()
		updates := map[string]any{}
		switch next {
		case enums.TransferStatusInTransit:
			updates["start_date"] = now
			transfer.StartDate = &now
		case enums.TransferStatusDelivered:
			updates["completed_date"] = now
			transfer.CompletedDate = &now
			if transfer.StartDate != nil {
				minutes := int(math.Round(now.Sub(*transfer.StartDate).Minutes()))
				updates["actual_minutes"] = minutes
				transfer.ActualMinutes = &minutes
			}
			if err := s.settleRecord(ctx, tx, transfer, &transfer.DestinationWarehouseID); err != nil {
				return err
			}
			if transfer.TruckID != nil {
				if err := trucks.ReleaseTx(ctx, tx, *transfer.TruckID); err != nil {
					return err
				}
			}
		}

		if err := s.update(ctx, tx, transfer, next, updates); err != nil {
			return err
		}
		advanced = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "warehouse_transfer", transferID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", advanced.Status), "transfer.advanced")
	return advanced, nil
}

// Cancel stops a transfer that has not left yet. The record stays where it is.
func (s *service) Cancel(ctx context.Context, transferID uuid.UUID) (*models.WarehouseTransfer, error) {
	var cancelled *models.WarehouseTransfer
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		transfer, err := s.lockTransfer(ctx, tx, transferID)
		if err != nil {
			return err
		}
		if !transfer.Status.CanTransitionTo(enums.TransferStatusCancelled) {
			return invalidTransition(transfer.Status, enums.TransferStatusCancelled)
		}
		if transfer.TruckID != nil {
			if err := trucks.ReleaseTx(ctx, tx, *transfer.TruckID); err != nil {
				return err
			}
		}
		if err := s.settleRecord(ctx, tx, transfer, nil); err != nil {
			return err
		}
		if err := s.update(ctx, tx, transfer, enums.TransferStatusCancelled, map[string]any{}); err != nil {
			return err
		}
		cancelled = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithEntity(ctx, "warehouse_transfer", transferID.String()), "transfer.cancelled")
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, transferID uuid.UUID) (*models.WarehouseTransfer, error) {
	transfer, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer")
	}
	return transfer, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.WarehouseTransfer], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list transfers")
	}
	return page, nil
}

// settleRecord drops the transfer's reservation and, when destination is set,
// moves the record there.
func (s *service) settleRecord(ctx context.Context, tx *gorm.DB, transfer *models.WarehouseTransfer, destination *uuid.UUID) error {
	_, err := s.writer.Mutate(ctx, tx, transfer.RecordID, func(record *models.StockRecord, _ *models.Product) error {
		if record.ReservedTransferID == nil || *record.ReservedTransferID != transfer.ID {
			return nil
		}
		record.ReservedTransferID = nil
		if destination != nil && record.Status == enums.StockStatusInStock {
			record.WarehouseID = destination
		}
		return nil
	})
	return err
}

func (s *service) update(ctx context.Context, tx *gorm.DB, transfer *models.WarehouseTransfer, next enums.TransferStatus, updates map[string]any) error {
	updates["status"] = next
	rows, err := s.repo.WithTx(tx).UpdateFrom(ctx, transfer.ID, transfer.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update transfer")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "transfer changed concurrently")
	}
	prev := transfer.Status
	transfer.Status = next
	return s.emit(ctx, tx, transfer.ID, prev, next, s.clock.Now())
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.TransferStatus, at time.Time) error {
	event := outbox.StatusChange(enums.EventTransferStatusChanged, enums.AggregateTransfer, id, string(from), string(to), at)
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit transfer event")
	}
	return nil
}

func (s *service) lockTransfer(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.WarehouseTransfer, error) {
	transfer, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock transfer")
	}
	return transfer, nil
}

func loadWarehouse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := warehouses.NewRepository(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeReferenceNotFound, "warehouse not found").
				WithDetails(map[string]any{"warehouse_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	return warehouse, nil
}

func recordNeedsRefrigeration(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) (bool, error) {
	var chilled []bool
	err := tx.WithContext(ctx).
		Model(&models.StockRecord{}).
		Joins("JOIN products ON products.id = stock_records.product_id").
		Where("stock_records.id = ?", recordID).
		Pluck("products.requires_refrigeration", &chilled).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load record product")
	}
	return len(chilled) > 0 && chilled[0], nil
}

func invalidTransition(from, to enums.TransferStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transfer status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}

func without(candidates []models.Truck, id uuid.UUID) []models.Truck {
	out := candidates[:0]
	for _, truck := range candidates {
		if truck.ID != id {
			out = append(out, truck)
		}
	}
	return out
}
