package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Service manages the product catalog.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Product], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name                  string
	BasePrice             decimal.Decimal
	DiscountPercentage    int
	RequiresRefrigeration bool
	ShelfLifeDays         *int
	DeadlineToDiscount    *int
}

// UpdateInput holds optional catalog edits.
type UpdateInput struct {
	Name                  *string
	BasePrice             *decimal.Decimal
	DiscountPercentage    *int
	RequiresRefrigeration *bool
	ShelfLifeDays         *int
	DeadlineToDiscount    *int
}

type service struct {
	repo  *Repository
	logg  *logger.Logger
	clock clock.Clock
}

// NewService constructs the product service. clk defaults to the wall clock.
func NewService(repo *Repository, logg *logger.Logger, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, errors.New("product repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &service{repo: repo, logg: logg, clock: clk}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	product := &models.Product{
		Name:                  input.Name,
		BasePrice:             input.BasePrice,
		DiscountPercentage:    input.DiscountPercentage,
		RequiresRefrigeration: input.RequiresRefrigeration,
		ShelfLifeDays:         input.ShelfLifeDays,
		DeadlineToDiscount:    input.DeadlineToDiscount,
	}
	if err := validate(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	s.logg.Info(s.logg.WithEntity(ctx, "product", product.ID.String()), "product.created")
	return product, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Product], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list products")
	}
	return page, nil
}

// Update applies catalog edits. A shelf life change re-dates the product's
// in-stock records so the sweeper and buyer listings see the new expiry.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.BasePrice != nil {
		product.BasePrice = *input.BasePrice
	}
	if input.DiscountPercentage != nil {
		product.DiscountPercentage = *input.DiscountPercentage
	}
	if input.RequiresRefrigeration != nil {
		product.RequiresRefrigeration = *input.RequiresRefrigeration
	}
	shelfLifeChanged := false
	if input.ShelfLifeDays != nil {
		shelfLifeChanged = product.ShelfLifeDays == nil || *product.ShelfLifeDays != *input.ShelfLifeDays
		product.ShelfLifeDays = input.ShelfLifeDays
	}
	if input.DeadlineToDiscount != nil {
		product.DeadlineToDiscount = input.DeadlineToDiscount
	}
	if err := validate(product); err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "product", product.ID.String())
	if shelfLifeChanged {
		redated, err := s.repo.SaveWithExpiry(ctx, product, s.clock.Now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		logCtx = s.logg.WithField(logCtx, "redated_records", redated)
	} else if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	s.logg.Info(logCtx, "product.updated")
	return product, nil
}

func validate(p *models.Product) error {
	switch {
	case p.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case p.BasePrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "base_price must not be negative")
	case p.DiscountPercentage < 0 || p.DiscountPercentage > 100:
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percentage must be between 0 and 100")
	case p.ShelfLifeDays != nil && *p.ShelfLifeDays < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "shelf_life_days must not be negative")
	case p.DeadlineToDiscount != nil && *p.DeadlineToDiscount < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "deadline_to_discount must not be negative")
	}
	return nil
}
