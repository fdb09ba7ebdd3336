package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Repository reads stock records and performs the guarded writes used by
// Writer. It never decides lifecycle fields on its own.
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

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	var record models.StockRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByIDForUpdate loads the record holding a row lock for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	var record models.StockRecord
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) insert(ctx context.Context, record *models.StockRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// updateGuarded persists the mutable columns when the stored version still
// matches expected, bumping it. It returns the affected row count.
func (r *Repository) updateGuarded(ctx context.Context, record *models.StockRecord, expected int, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("id = ? AND version = ?", record.ID, expected).
		Updates(map[string]any{
			"warehouse_id":         record.WarehouseID,
			"quantity_kg":          record.QuantityKg,
			"quality":              record.Quality,
			"status":               record.Status,
			"expires_at":           record.ExpiresAt,
			"sale_date":            record.SaleDate,
			"reserved_order_id":    record.ReservedOrderID,
			"reserved_transfer_id": record.ReservedTransferID,
			"version":              expected + 1,
			"updated_at":           now,
		})
	return res.RowsAffected, res.Error
}

// ListFilter narrows stock listings.
type ListFilter struct {
	Status      *enums.StockStatus
	WarehouseID *uuid.UUID
	ProductID   *uuid.UUID
	SupplierID  *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.StockRecord], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.StockRecord]{}, err
	}
	query := r.db.WithContext(ctx).Model(&models.StockRecord{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	var rows []models.StockRecord
	if err := query.Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.StockRecord]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(rec models.StockRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	}), nil
}

// ListExpiringBetween returns non-discarded records with from < expires_at <= to,
// soonest first.
func (r *Repository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.StockRecord, error) {
	var rows []models.StockRecord
	err := r.db.WithContext(ctx).
		Where("status <> ? AND expires_at > ? AND expires_at <= ?", enums.StockStatusDiscarded, from, to).
		Order("expires_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListSelectable returns in-stock, unreserved records that have not expired at now.
func (r *Repository) ListSelectable(ctx context.Context, now time.Time) ([]models.StockRecord, error) {
	var rows []models.StockRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND reserved_order_id IS NULL AND reserved_transfer_id IS NULL", enums.StockStatusInStock).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("expires_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ExpiredCandidateIDs returns up to limit in-stock records whose expiry has passed.
func (r *Repository) ExpiredCandidateIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("status = ? AND expires_at <= ?", enums.StockStatusInStock, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("id", &ids).Error
	return ids, err
}

// ListByOrder returns the records reserved by or sold to the order.
func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockRecord, error) {
	var rows []models.StockRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN order_items ON order_items.record_id = stock_records.id").
		Where("order_items.order_id = ?", orderID).
		Order("stock_records.id ASC").
		Find(&rows).Error
	return rows, err
}
