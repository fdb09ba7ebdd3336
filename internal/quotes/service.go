package quotes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// Service manages supplier quotes and answers the approval gate used by
// stock registration.
type Service interface {
	Submit(ctx context.Context, supplierID, productID uuid.UUID) (*models.Quote, error)
	Decide(ctx context.Context, quoteID uuid.UUID, approve bool) (*models.Quote, error)
	IsApproved(ctx context.Context, supplierID, productID uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Quote], error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ServiceParams struct {
	Repo     *Repository
	DB       *db.Client
	Products productLoader
	Outbox   outbox.Emitter
	Clock    clock.Clock
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	db       *db.Client
	products productLoader
	outbox   outbox.Emitter
	clock    clock.Clock
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("quote repository required")
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Products == nil:
		return nil, errors.New("product loader required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &service{
		repo:     params.Repo,
		db:       params.DB,
		products: params.Products,
		outbox:   params.Outbox,
		clock:    clk,
		logg:     params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, supplierID, productID uuid.UUID) (*models.Quote, error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier_id is required")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeReferenceNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	quote := &models.Quote{
		SupplierID:     supplierID,
		ProductID:      productID,
		Status:         enums.QuoteStatusPending,
		SubmissionDate: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert quote")
	}
	s.logg.Info(s.logg.WithEntity(ctx, "quote", quote.ID.String()), "quote.submitted")
	return quote, nil
}

func (s *service) Decide(ctx context.Context, quoteID uuid.UUID, approve bool) (*models.Quote, error) {
	next := enums.QuoteStatusRejected
	if approve {
		next = enums.QuoteStatusApproved
	}

	var decided *models.Quote
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		quote, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		if quote.Status == next || !quote.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "quote already decided").
				WithDetails(map[string]any{"from": quote.Status, "to": next})
		}
		now := s.clock.Now()
		quote.Status = next
		quote.DecidedAt = &now
		if err := s.repo.WithTx(tx).UpdateDecision(ctx, quote); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update quote")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteDecided,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Data:          outbox.QuoteDecided{SupplierID: quote.SupplierID, ProductID: quote.ProductID, Status: string(next)},
			OccurredAt:    now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit quote event")
		}
		decided = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithEntity(ctx, "quote", decided.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", decided.Status), "quote.decided")
	return decided, nil
}

func (s *service) IsApproved(ctx context.Context, supplierID, productID uuid.UUID) (bool, error) {
	ok, err := s.repo.HasApproved(ctx, supplierID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check quote approval")
	}
	return ok, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return quote, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Quote], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list quotes")
	}
	return page, nil
}
