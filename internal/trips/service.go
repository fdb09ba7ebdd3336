package trips

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/internal/transfers"
	"github.com/angelmondragon/freshroute-backend/internal/trucks"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Service orchestrates delivery trips for confirmed orders.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Trip, error)
	Transition(ctx context.Context, tripID uuid.UUID, next enums.TripStatus) (*models.Trip, error)
	UpdateLocation(ctx context.Context, tripID uuid.UUID, loc types.Location) (*models.Truck, error)
	Get(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Trip], error)
}

type CreateInput struct {
	OrderID          uuid.UUID
	TruckID          uuid.UUID
	Origin           types.Location
	Destination      types.Location
	EstimatedMinutes *int
}

type ServiceParams struct {
	Repo            *Repository
	DB              *db.Client
	Orders          *orders.Transitioner
	Outbox          outbox.Emitter
	Clock           clock.Clock
	Logger          *logger.Logger
	AverageSpeedKPH float64
}

type service struct {
	repo   *Repository
	db     *db.Client
	orders *orders.Transitioner
	outbox outbox.Emitter
	clock  clock.Clock
	logg   *logger.Logger
	speed  float64
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("trip repository required")
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Orders == nil:
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
		repo:   params.Repo,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		clock:  clk,
		logg:   params.Logger,
		speed:  params.AverageSpeedKPH,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Trip, error) {
	if err := input.Origin.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "origin: "+err.Error())
	}
	if err := input.Destination.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "destination: "+err.Error())
	}
	if input.EstimatedMinutes != nil && *input.EstimatedMinutes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated_minutes must not be negative")
	}

	var created *models.Trip
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := orders.NewRepository(tx).FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeReferenceNotFound, "order not found").
					WithDetails(map[string]any{"order_id": input.OrderID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order must be confirmed before dispatch").
				WithDetails(map[string]any{"order_status": order.Status})
		}

		repo := s.repo.WithTx(tx)
		chilled, err := repo.OrderNeedsRefrigeration(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order products")
		}
		truck, err := trucks.Dispatch(ctx, tx, input.TruckID, chilled)
		if err != nil {
			return err
		}

		estimate := input.EstimatedMinutes
		if estimate == nil && s.speed > 0 {
			minutes := transfers.EstimateMinutes(input.Origin, input.Destination, s.speed)
			estimate = &minutes
		}
		trip := &models.Trip{
			ID:               uuid.New(),
			OrderID:          order.ID,
			TruckID:          truck.ID,
			Status:           enums.TripStatusWaiting,
			Origin:           input.Origin,
			Destination:      input.Destination,
			EstimatedMinutes: estimate,
		}
		if err := repo.Create(ctx, trip); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert trip")
		}
		if err := s.emit(ctx, tx, trip.ID, "", enums.TripStatusWaiting); err != nil {
			return err
		}
		created = trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "trip", created.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "truck_id", created.TruckID.String()), "trip.created")
	return created, nil
}

// Transition moves the trip along its state table. A paused trip may only
// resume to the state it was paused from.
func (s *service) Transition(ctx context.Context, tripID uuid.UUID, next enums.TripStatus) (*models.Trip, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trip status")
	}

	var moved *models.Trip
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if !trip.Status.CanTransitionTo(next, trip.PausedFrom) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "trip status transition not allowed").
				WithDetails(map[string]any{"from": trip.Status, "to": next, "paused_from": trip.PausedFrom})
		}

		now := s.clock.Now()
		updates := map[string]any{"status": next}
		if next == enums.TripStatusPaused {
			from := trip.Status
			updates["paused_from"] = from
			trip.PausedFrom = &from
		} else if trip.Status == enums.TripStatusPaused {
			updates["paused_from"] = nil
			trip.PausedFrom = nil
		}
		if trip.Status == enums.TripStatusWaiting {
			updates["start_date"] = now
			trip.StartDate = &now
		}

		switch next {
		case enums.TripStatusDelivering:
			if err := s.orderInTransit(ctx, tx, trip.OrderID); err != nil {
				return err
			}
		case enums.TripStatusDelivered:
			updates["end_date"] = now
			trip.EndDate = &now
			if trip.StartDate != nil {
				minutes := int(math.Round(now.Sub(*trip.StartDate).Minutes()))
				updates["actual_minutes"] = minutes
				trip.ActualMinutes = &minutes
			}
			if _, err := s.orders.Transition(ctx, tx, trip.OrderID, enums.OrderStatusCompleted); err != nil {
				return err
			}
			if err := trucks.ReleaseTx(ctx, tx, trip.TruckID); err != nil {
				return err
			}
		}

		rows, err := s.repo.WithTx(tx).UpdateFrom(ctx, trip.ID, trip.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update trip")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "trip changed concurrently")
		}
		prev := trip.Status
		trip.Status = next
		if err := s.emit(ctx, tx, trip.ID, prev, next); err != nil {
			return err
		}
		moved = trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "trip", tripID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", next), "trip.status_changed")
	return moved, nil
}

// orderInTransit moves a confirmed order into transit. Resuming delivery
// after a pause finds the order already in transit and leaves it alone.
func (s *service) orderInTransit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	order, err := orders.NewRepository(tx).FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusConfirmed {
		return nil
	}
	_, err = s.orders.Transition(ctx, tx, orderID, enums.OrderStatusInTransit)
	return err
}

// UpdateLocation records the truck position for an active trip.
func (s *service) UpdateLocation(ctx context.Context, tripID uuid.UUID, loc types.Location) (*models.Truck, error) {
	if err := loc.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	var truck *models.Truck
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if trip.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "trip already delivered")
		}
		repo := trucks.NewRepository(tx)
		if _, err := repo.UpdateLocation(ctx, trip.TruckID, loc); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update truck location")
		}
		truck, err = repo.FindByID(ctx, trip.TruckID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return truck, nil
}

func (s *service) Get(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.repo.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	return trip, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Trip], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list trips")
	}
	return page, nil
}

func (s *service) lockTrip(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Trip, error) {
	trip, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock trip")
	}
	return trip, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.TripStatus) error {
	event := outbox.StatusChange(enums.EventTripStatusChanged, enums.AggregateTrip, id, string(from), string(to), s.clock.Now())
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit trip event")
	}
	return nil
}

