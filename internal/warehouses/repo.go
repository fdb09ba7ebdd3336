package warehouses

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Repository persists warehouses.
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

func (r *Repository) Create(ctx context.Context, warehouse *models.Warehouse) error {
	if warehouse.ID == uuid.Nil {
		warehouse.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(warehouse).Error
}

// FindByID loads the warehouse or returns gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *Repository) Save(ctx context.Context, warehouse *models.Warehouse) error {
	return r.db.WithContext(ctx).Save(warehouse).Error
}

func (r *Repository) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Warehouse], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.Warehouse]{}, err
	}
	var rows []models.Warehouse
	if err := r.db.WithContext(ctx).Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.Warehouse]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(w models.Warehouse) pagination.Cursor {
		return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
	}), nil
}

type storedLoad struct {
	Refrigerated bool
	Total        decimal.Decimal
}

// StoredKg sums in-stock quantity at the warehouse, split by whether the
// product needs refrigeration.
func (r *Repository) StoredKg(ctx context.Context, warehouseID uuid.UUID) (normal, refrigerated decimal.Decimal, err error) {
	var rows []storedLoad
	err = r.db.WithContext(ctx).
		Table("stock_records AS s").
		Select("p.requires_refrigeration AS refrigerated, COALESCE(SUM(s.quantity_kg), 0) AS total").
		Joins("JOIN products p ON p.id = s.product_id").
		Where("s.warehouse_id = ? AND s.status = ?", warehouseID, enums.StockStatusInStock).
		Group("p.requires_refrigeration").
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	normal, refrigerated = decimal.Zero, decimal.Zero
	for _, row := range rows {
		if row.Refrigerated {
			refrigerated = refrigerated.Add(row.Total)
		} else {
			normal = normal.Add(row.Total)
		}
	}
	return normal, refrigerated, nil
}
