package warehouses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Service manages warehouses.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Warehouse, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Warehouse], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Warehouse, error)
	Utilization(ctx context.Context, id uuid.UUID) (*Utilization, error)
}

type CreateInput struct {
	Name                   string
	Location               types.Location
	NormalCapacityKg       *int
	RefrigeratedCapacityKg *int
}

type UpdateInput struct {
	Name                   *string
	Location               *types.Location
	NormalCapacityKg       *int
	RefrigeratedCapacityKg *int
}

// Utilization compares stored in-stock weight with the capacity ceilings.
// Ceilings are advisory; writes are never rejected for exceeding them.
type Utilization struct {
	WarehouseID            uuid.UUID       `json:"warehouse_id"`
	NormalStoredKg         decimal.Decimal `json:"normal_stored_kg"`
	RefrigeratedStoredKg   decimal.Decimal `json:"refrigerated_stored_kg"`
	NormalCapacityKg       *int            `json:"normal_capacity_kg,omitempty"`
	RefrigeratedCapacityKg *int            `json:"refrigerated_capacity_kg,omitempty"`
	OverCapacity           bool            `json:"over_capacity"`
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("warehouse repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Warehouse, error) {
	warehouse := &models.Warehouse{
		Name:                   input.Name,
		Location:               input.Location,
		NormalCapacityKg:       input.NormalCapacityKg,
		RefrigeratedCapacityKg: input.RefrigeratedCapacityKg,
	}
	if err := validate(warehouse); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert warehouse")
	}
	s.logg.Info(s.logg.WithEntity(ctx, "warehouse", warehouse.ID.String()), "warehouse.created")
	return warehouse, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	return warehouse, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Warehouse], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list warehouses")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Warehouse, error) {
	warehouse, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		warehouse.Name = *input.Name
	}
	if input.Location != nil {
		warehouse.Location = *input.Location
	}
	if input.NormalCapacityKg != nil {
		warehouse.NormalCapacityKg = input.NormalCapacityKg
	}
	if input.RefrigeratedCapacityKg != nil {
		warehouse.RefrigeratedCapacityKg = input.RefrigeratedCapacityKg
	}
	if err := validate(warehouse); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update warehouse")
	}
	s.logg.Info(s.logg.WithEntity(ctx, "warehouse", warehouse.ID.String()), "warehouse.updated")
	return warehouse, nil
}

func (s *service) Utilization(ctx context.Context, id uuid.UUID) (*Utilization, error) {
	warehouse, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	normal, refrigerated, err := s.repo.StoredKg(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum warehouse stock")
	}
	return &Utilization{
		WarehouseID:            warehouse.ID,
		NormalStoredKg:         normal,
		RefrigeratedStoredKg:   refrigerated,
		NormalCapacityKg:       warehouse.NormalCapacityKg,
		RefrigeratedCapacityKg: warehouse.RefrigeratedCapacityKg,
		OverCapacity:           exceeds(normal, warehouse.NormalCapacityKg) || exceeds(refrigerated, warehouse.RefrigeratedCapacityKg),
	}, nil
}

func exceeds(stored decimal.Decimal, capacity *int) bool {
	return capacity != nil && stored.GreaterThan(decimal.NewFromInt(int64(*capacity)))
}

func validate(w *models.Warehouse) error {
	if w.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := w.Location.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if w.NormalCapacityKg != nil && *w.NormalCapacityKg < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "normal_capacity_kg must not be negative")
	}
	if w.RefrigeratedCapacityKg != nil && *w.RefrigeratedCapacityKg < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refrigerated_capacity_kg must not be negative")
	}
	return nil
}
