package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// ActiveRecordIndex is the partial unique index that allows one active
// transfer per stock record.
const ActiveRecordIndex = "ux_warehouse_transfers_active_record"

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

func (r *Repository) Create(ctx context.Context, transfer *models.WarehouseTransfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WarehouseTransfer, error) {
	var transfer models.WarehouseTransfer
	if err := r.db.WithContext(ctx).First(&transfer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WarehouseTransfer, error) {
	var transfer models.WarehouseTransfer
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&transfer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

// UpdateFrom applies updates only while the transfer is still in from.
func (r *Repository) UpdateFrom(ctx context.Context, id uuid.UUID, from enums.TransferStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WarehouseTransfer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ListFilter narrows transfer listings.
type ListFilter struct {
	Status   *enums.TransferStatus
	RecordID *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.WarehouseTransfer], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.WarehouseTransfer]{}, err
	}
	query := r.db.WithContext(ctx).Model(&models.WarehouseTransfer{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RecordID != nil {
		query = query.Where("record_id = ?", *filter.RecordID)
	}
	var rows []models.WarehouseTransfer
	if err := query.Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.WarehouseTransfer]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(tr models.WarehouseTransfer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: tr.CreatedAt, ID: tr.ID}
	}), nil
}
