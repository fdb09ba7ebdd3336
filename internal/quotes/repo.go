package quotes

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

func (r *Repository) Create(ctx context.Context, quote *models.Quote) error {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *Repository) UpdateDecision(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ?", quote.ID).
		Updates(map[string]any{"status": quote.Status, "decided_at": quote.DecidedAt}).Error
}

// HasApproved reports whether the supplier holds an approved quote for the product.
func (r *Repository) HasApproved(ctx context.Context, supplierID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("supplier_id = ? AND product_id = ? AND status = ?", supplierID, productID, enums.QuoteStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// ListFilter narrows quote listings.
type ListFilter struct {
	SupplierID *uuid.UUID
	ProductID  *uuid.UUID
	Status     *enums.QuoteStatus
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Quote], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.Quote]{}, err
	}
	query := r.db.WithContext(ctx).Model(&models.Quote{})
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	var rows []models.Quote
	if err := query.Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.Quote]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(q models.Quote) pagination.Cursor {
		return pagination.Cursor{CreatedAt: q.CreatedAt, ID: q.ID}
	}), nil
}
