package trucks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Service manages the truck fleet. Status changes happen only through
// transfer and trip assignment.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Truck, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Truck, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Truck], error)
	UpdateLocation(ctx context.Context, id uuid.UUID, loc types.Location) (*models.Truck, error)
	AssignDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (*models.Truck, error)
}

type CreateInput struct {
	Type           enums.TruckType
	DriverID       *uuid.UUID
	LoadCapacityKg *int
	Location       *types.Location
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("truck repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Truck, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid truck type")
	}
	if input.LoadCapacityKg != nil && *input.LoadCapacityKg < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "load_capacity_kg must not be negative")
	}
	truck := &models.Truck{
		Type:           input.Type,
		DriverID:       input.DriverID,
		LoadCapacityKg: input.LoadCapacityKg,
		Status:         enums.TruckStatusAvailable,
	}
	if input.Location != nil {
		if err := input.Location.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		truck.CurrentLat = &input.Location.Lat
		truck.CurrentLng = &input.Location.Lng
	}
	if err := s.repo.Create(ctx, truck); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert truck")
	}
	s.logg.Info(s.logg.WithEntity(ctx, "truck", truck.ID.String()), "truck.created")
	return truck, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Truck, error) {
	truck, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "truck not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck")
	}
	return truck, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Truck], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list trucks")
	}
	return page, nil
}

func (s *service) UpdateLocation(ctx context.Context, id uuid.UUID, loc types.Location) (*models.Truck, error) {
	if err := loc.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rows, err := s.repo.UpdateLocation(ctx, id, loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update truck location")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "truck not found")
	}
	return s.Get(ctx, id)
}

func (s *service) AssignDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (*models.Truck, error) {
	rows, err := s.repo.UpdateDriver(ctx, id, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update truck driver")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "truck not found")
	}
	s.logg.Info(s.logg.WithEntity(ctx, "truck", id.String()), "truck.driver_assigned")
	return s.Get(ctx, id)
}
