package products

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

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads the product or returns gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// SaveWithExpiry persists the product and recomputes expires_at for its
// in-stock records in the same transaction. It returns how many records were
// re-dated.
func (r *Repository) SaveWithExpiry(ctx context.Context, product *models.Product, now time.Time) (int, error) {
	redated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(product).Error; err != nil {
			return err
		}
		var records []models.StockRecord
		err := db.ForUpdate(tx).
			Select("id", "registration_date", "expires_at").
			Where("product_id = ? AND status = ?", product.ID, enums.StockStatusInStock).
			Find(&records).Error
		if err != nil {
			return err
		}
		for _, record := range records {
			var expiresAt *time.Time
			if record.RegistrationDate != nil {
				if at, ok := product.ExpiryFrom(record.RegistrationDate.UTC()); ok {
					expiresAt = &at
				}
			}
			if sameExpiry(record.ExpiresAt, expiresAt) {
				continue
			}
			err := tx.Model(&models.StockRecord{}).
				Where("id = ?", record.ID).
				Updates(map[string]any{
					"expires_at": expiresAt,
					"version":    gorm.Expr("version + 1"),
					"updated_at": now,
				}).Error
			if err != nil {
				return err
			}
			redated++
		}
		return nil
	})
	return redated, err
}

func sameExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (r *Repository) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Product], error) {
	scope, err := pagination.Scope(params)
	if err != nil {
		return pagination.Page[models.Product]{}, err
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Scopes(scope).Find(&rows).Error; err != nil {
		return pagination.Page[models.Product]{}, err
	}
	return pagination.Finish(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}
