package quotes

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/products"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/outbox"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

type fixture struct {
	svc     Service
	conn    *gorm.DB
	product *models.Product
	clock   *clock.Manual
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	productRepo := products.NewRepository(conn)
	product := &models.Product{Name: "lettuce", BasePrice: decimal.NewFromInt(2)}
	require.NoError(t, productRepo.Create(context.Background(), product))

	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		DB:       db.Wrap(conn),
		Products: productRepo,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Clock:    clk,
		Logger:   logg,
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, product: product, clock: clk}
}

func TestSubmitRequiresExistingProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), uuid.New(), uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeReferenceNotFound), "got %v", err)

	quote, err := f.svc.Submit(context.Background(), uuid.New(), f.product.ID)
	require.NoError(t, err)
	require.Equal(t, enums.QuoteStatusPending, quote.Status)
	require.True(t, quote.SubmissionDate.Equal(f.clock.Now()))
}

func TestDecideApprovesOnceAndGatesRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := uuid.New()

	quote, err := f.svc.Submit(ctx, supplier, f.product.ID)
	require.NoError(t, err)

	approved, err := f.svc.IsApproved(ctx, supplier, f.product.ID)
	require.NoError(t, err)
	require.False(t, approved)

	decided, err := f.svc.Decide(ctx, quote.ID, true)
	require.NoError(t, err)
	require.Equal(t, enums.QuoteStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	approved, err = f.svc.IsApproved(ctx, supplier, f.product.ID)
	require.NoError(t, err)
	require.True(t, approved)

	_, err = f.svc.Decide(ctx, quote.ID, false)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", quote.ID).Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventQuoteDecided, events[0].EventType)
}

func TestDecideUnknownQuote(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Decide(context.Background(), uuid.New(), true)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestListQuotesByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Submit(ctx, uuid.New(), f.product.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, uuid.New(), f.product.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, first.ID, false)
	require.NoError(t, err)

	rejected := enums.QuoteStatusRejected
	page, err := f.svc.List(ctx, ListFilter{Status: &rejected}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, first.ID, page.Items[0].ID)
}
