package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/pricing"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Service exposes stock registration, edits and buyer listings.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.StockRecord, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.StockRecord, error)
	Donate(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
	Discard(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.StockRecord], error)
	NearExpiration(ctx context.Context, days *int) ([]models.StockRecord, error)
	Available(ctx context.Context) ([]AvailableRecord, error)
}

type RegisterInput struct {
	SupplierID     uuid.UUID
	ProductID      uuid.UUID
	WarehouseID    *uuid.UUID
	QuantityKg     decimal.Decimal
	Classification enums.Classification
}

// UpdateInput carries the fields a caller may propose. Nil fields are kept.
type UpdateInput struct {
	Quality     *enums.Quality
	Status      *enums.StockStatus
	WarehouseID *uuid.UUID
	QuantityKg  *decimal.Decimal
}

// AvailableRecord is a buyer-facing record with its current price.
type AvailableRecord struct {
	models.StockRecord
	EffectivePrice  decimal.Decimal `json:"effective_price"`
	Discounted      bool            `json:"discounted"`
	DaysUntilExpiry *int            `json:"days_until_expiry,omitempty"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type warehouseLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
}

type approvalChecker interface {
	IsApproved(ctx context.Context, supplierID, productID uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Repo           *Repository
	DB             *db.Client
	Writer         *Writer
	Products       productLoader
	Warehouses     warehouseLoader
	Quotes         approvalChecker
	Clock          clock.Clock
	Logger         *logger.Logger
	NearExpiryDays int
}

type service struct {
	repo           *Repository
	db             *db.Client
	writer         *Writer
	products       productLoader
	warehouses     warehouseLoader
	quotes         approvalChecker
	clock          clock.Clock
	logg           *logger.Logger
	nearExpiryDays int
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("stock repository required")
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Writer == nil:
		return nil, errors.New("stock writer required")
	case params.Products == nil:
		return nil, errors.New("product loader required")
	case params.Warehouses == nil:
		return nil, errors.New("warehouse loader required")
	case params.Quotes == nil:
		return nil, errors.New("quote approval checker required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.NearExpiryDays < 0:
		return nil, errors.New("near expiry days must not be negative")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &service{
		repo:           params.Repo,
		db:             params.DB,
		writer:         params.Writer,
		products:       params.Products,
		warehouses:     params.Warehouses,
		quotes:         params.Quotes,
		clock:          clk,
		logg:           params.Logger,
		nearExpiryDays: params.NearExpiryDays,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.StockRecord, error) {
	if !input.Classification.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid classification").
			WithDetails(map[string]any{"classification": input.Classification})
	}
	quality, ok := input.Classification.Quality()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "classification rejected the batch").
			WithDetails(map[string]any{"classification": input.Classification})
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier_id is required")
	}
	if !input.QuantityKg.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_kg must be positive")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	approved, err := s.quotes.IsApproved(ctx, input.SupplierID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier has no approved quote for product")
	}
	if input.WarehouseID != nil {
		if err := s.checkWarehouse(ctx, *input.WarehouseID, product); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	proposed := models.StockRecord{
		ProductID:        input.ProductID,
		SupplierID:       input.SupplierID,
		WarehouseID:      input.WarehouseID,
		QuantityKg:       input.QuantityKg,
		Quality:          quality,
		Status:           enums.StockStatusInStock,
		RegistrationDate: &now,
	}
	var result Result
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.writer.Insert(ctx, tx, proposed)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "stock_record", result.Record.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", result.Record.Status), "stock.registered")
	return &result.Record, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.StockRecord, error) {
	if input.QuantityKg != nil && !input.QuantityKg.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_kg must be positive")
	}
	var warehouse *models.Warehouse
	if input.WarehouseID != nil {
		loaded, err := s.loadWarehouse(ctx, *input.WarehouseID)
		if err != nil {
			return nil, err
		}
		warehouse = loaded
	}

	return s.mutate(ctx, id, "stock.updated", func(record *models.StockRecord, product *models.Product) error {
		if warehouse != nil && !sameID(record.WarehouseID, &warehouse.ID) {
			if record.IsReserved() {
				return pkgerrors.New(pkgerrors.CodeRecordUnavailable, "reserved record cannot change warehouse").
					WithDetails(map[string]any{"record_id": record.ID})
			}
			if product != nil && !warehouse.Stores(product.RequiresRefrigeration) {
				return pkgerrors.New(pkgerrors.CodeValidation, "warehouse has no refrigerated capacity")
			}
			record.WarehouseID = &warehouse.ID
		}
		if input.Quality != nil {
			record.Quality = *input.Quality
		}
		if input.Status != nil && *input.Status != record.Status {
			if err := checkStatusEdit(record, *input.Status); err != nil {
				return err
			}
			record.Status = *input.Status
		}
		if input.QuantityKg != nil {
			record.QuantityKg = *input.QuantityKg
		}
		return nil
	})
}

// checkStatusEdit guards status changes proposed through a generic update.
// Reserved records may only be discarded, and discarded records leave through
// Donate.
func checkStatusEdit(record *models.StockRecord, next enums.StockStatus) error {
	if record.Status == enums.StockStatusDiscarded && next == enums.StockStatusDonated {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "discarded records are donated through the donate action").
			WithDetails(map[string]any{"record_id": record.ID})
	}
	if record.Status == enums.StockStatusInStock && record.IsReserved() && next != enums.StockStatusDiscarded {
		return pkgerrors.New(pkgerrors.CodeRecordUnavailable, "reserved record cannot change status").
			WithDetails(map[string]any{"record_id": record.ID, "status": next})
	}
	return nil
}

func (s *service) Donate(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	return s.mutate(ctx, id, "stock.donated", func(record *models.StockRecord, _ *models.Product) error {
		if record.Status == enums.StockStatusInStock && record.IsReserved() {
			return pkgerrors.New(pkgerrors.CodeRecordUnavailable, "reserved record cannot be donated").
				WithDetails(map[string]any{"record_id": record.ID})
		}
		record.Status = enums.StockStatusDonated
		return nil
	})
}

func (s *service) Discard(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	return s.mutate(ctx, id, "stock.discard_requested", func(record *models.StockRecord, _ *models.Product) error {
		record.Quality = enums.QualityBad
		record.Status = enums.StockStatusDiscarded
		return nil
	})
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, event string, fn Mutation) (*models.StockRecord, error) {
	var result Result
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.writer.Mutate(ctx, tx, id, fn)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logCtx := s.logg.WithEntity(ctx, "stock_record", id.String())
		s.logg.Info(s.logg.WithField(logCtx, "status", result.Record.Status), event)
	}
	return &result.Record, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock record")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.StockRecord], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list stock records")
	}
	return page, nil
}

func (s *service) NearExpiration(ctx context.Context, days *int) ([]models.StockRecord, error) {
	window := s.nearExpiryDays
	if days != nil {
		if *days < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "days must not be negative")
		}
		window = *days
	}
	now := s.clock.Now()
	rows, err := s.repo.ListExpiringBetween(ctx, now, now.AddDate(0, 0, window))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list near expiration")
	}
	return rows, nil
}

func (s *service) Available(ctx context.Context) ([]AvailableRecord, error) {
	now := s.clock.Now()
	rows, err := s.repo.ListSelectable(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available stock")
	}

	catalog := map[uuid.UUID]*models.Product{}
	out := make([]AvailableRecord, 0, len(rows))
	for _, record := range rows {
		product, ok := catalog[record.ProductID]
		if !ok {
			product, err = s.products.FindByID(ctx, record.ProductID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			catalog[record.ProductID] = product
		}
		if product == nil {
			continue
		}
		out = append(out, priced(*product, record, now))
	}
	return out, nil
}

func priced(product models.Product, record models.StockRecord, now time.Time) AvailableRecord {
	item := AvailableRecord{
		StockRecord:    record,
		EffectivePrice: pricing.EffectivePrice(product, record, now),
		Discounted:     pricing.Discounted(product, record, now),
	}
	if days, ok := pricing.DaysUntilExpiry(product, record, now); ok {
		item.DaysUntilExpiry = &days
	}
	return item
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeReferenceNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) loadWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := s.warehouses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeReferenceNotFound, "warehouse not found").
				WithDetails(map[string]any{"warehouse_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	return warehouse, nil
}

func (s *service) checkWarehouse(ctx context.Context, id uuid.UUID, product *models.Product) error {
	warehouse, err := s.loadWarehouse(ctx, id)
	if err != nil {
		return err
	}
	if !warehouse.Stores(product.RequiresRefrigeration) {
		return pkgerrors.New(pkgerrors.CodeValidation, "warehouse has no refrigerated capacity").
			WithDetails(map[string]any{"warehouse_id": id})
	}
	return nil
}
