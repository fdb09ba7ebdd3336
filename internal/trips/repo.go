package trips

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

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

func (r *Repository) Create(ctx context.Context, trip *models.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(trip).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).First(&trip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&trip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// UpdateFrom applies updates only while the trip is still in from.
func (r *Repository) UpdateFrom(ctx context.Context, id uuid.UUID, from enums.TripStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Trip{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// OrderNeedsRefrigeration reports whether any record of the order is a
// refrigerated product.
func (r *Repository) OrderNeedsRefrigeration(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN stock_records ON stock_records.id = order_items.record_id").
		Joins("JOIN products ON products.id = stock_records.product_id").
		Where("order_items.order_id = ? AND products.requires_refrigeration = ?", orderID, true).
		Count(&count).Error
	return count > 0, err
}

// ListFilter narrows trip listings.
type ListFilter struct {
	Status  *enums.TripStatus
	OrderID *uuid.UUID
	TruckID *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Trip], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.Trip]{}, err
	}
	query := r.db.WithContext(ctx).Model(&models.Trip{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.TruckID != nil {
		query = query.Where("truck_id = ?", *filter.TruckID)
	}
	var rows []models.Trip
	if err := query.Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.Trip]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(trip models.Trip) pagination.Cursor {
		return pagination.Cursor{CreatedAt: trip.CreatedAt, ID: trip.ID}
	}), nil
}
