package trucks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Repository persists trucks and performs the atomic claim/release swaps.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, truck *models.Truck) error {
	if truck.ID == uuid.Nil {
		truck.ID = uuid.New()
	}
	if truck.Status == "" {
		truck.Status = enums.TruckStatusAvailable
	}
	return r.db.WithContext(ctx).Create(truck).Error
}

// FindByID loads the truck or returns gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Truck, error) {
	var truck models.Truck
	if err := r.db.WithContext(ctx).First(&truck, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &truck, nil
}

// ListFilter narrows truck listings.
type ListFilter struct {
	Status *enums.TruckStatus
	Type   *enums.TruckType
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Truck], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.Truck]{}, err
	}
	query := r.db.WithContext(ctx).Model(&models.Truck{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	var rows []models.Truck
	if err := query.Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.Truck]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(t models.Truck) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	}), nil
}

// Claim flips an available truck to in_service in a single conditional
// update. It returns false when the truck was not available.
func (r *Repository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Truck{}).
		Where("id = ? AND status = ?", id, enums.TruckStatusAvailable).
		Update("status", enums.TruckStatusInService)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release returns the truck to the available pool.
func (r *Repository) Release(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Truck{}).
		Where("id = ?", id).
		Update("status", enums.TruckStatusAvailable).Error
}

func (r *Repository) UpdateLocation(ctx context.Context, id uuid.UUID, loc types.Location) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Truck{}).
		Where("id = ?", id).
		Updates(map[string]any{"current_lat": loc.Lat, "current_lng": loc.Lng})
	return res.RowsAffected, res.Error
}

func (r *Repository) UpdateDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Truck{}).
		Where("id = ?", id).
		Update("driver_id", driverID)
	return res.RowsAffected, res.Error
}

// AvailableWithDriver lists trucks that can be dispatched right now.
func (r *Repository) AvailableWithDriver(ctx context.Context, truckType *enums.TruckType) ([]models.Truck, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND driver_id IS NOT NULL", enums.TruckStatusAvailable)
	if truckType != nil {
		query = query.Where("type = ?", *truckType)
	}
	var rows []models.Truck
	err := query.Order("id ASC").Find(&rows).Error
	return rows, err
}
