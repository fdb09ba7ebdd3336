package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/db"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/metrics"
)

const defaultSweepBatchSize = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiredCandidateReader interface {
	ExpiredCandidateIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type stockMutator interface {
	Mutate(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, fn stock.Mutation) (stock.Result, error)
}

// ExpirationSweepJobParams configure the stock expiration sweeper.
type ExpirationSweepJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Candidates expiredCandidateReader
	Writer     stockMutator
	Clock      clock.Clock
	Metrics    *metrics.LifecycleMetrics
	BatchSize  int
}

// NewExpirationSweepJob builds the job that discards in-stock records past
// their expiry date.
func NewExpirationSweepJob(params ExpirationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("candidate reader required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("stock writer required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &expirationSweepJob{
		logg:       params.Logger,
		db:         params.DB,
		candidates: params.Candidates,
		writer:     params.Writer,
		clock:      clk,
		metrics:    params.Metrics,
		batch:      batch,
	}, nil
}

type expirationSweepJob struct {
	logg       *logger.Logger
	db         txRunner
	candidates expiredCandidateReader
	writer     stockMutator
	clock      clock.Clock
	metrics    *metrics.LifecycleMetrics
	batch      int
}

type sweepOutcome struct {
	transitioned int
	deferred     int
	failed       int
	err          error
}

func (j *expirationSweepJob) Name() string { return "stock-expiration-sweep" }

func (j *expirationSweepJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep discards every expired in-stock record and returns how many it
// transitioned. Records locked by another writer are left for the next cycle.
func (j *expirationSweepJob) Sweep(ctx context.Context) (int, error) {
	var total sweepOutcome
	for {
		ids, err := j.candidates.ExpiredCandidateIDs(ctx, j.clock.Now(), j.batch)
		if err != nil {
			return total.transitioned, fmt.Errorf("expiration sweep: list candidates: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		outcome := j.sweepBatch(ctx, ids)
		total.transitioned += outcome.transitioned
		total.deferred += outcome.deferred
		total.failed += outcome.failed
		total.err = multierr.Append(total.err, outcome.err)
		// a batch that moved nothing would be read again unchanged
		if len(ids) < j.batch || outcome.transitioned == 0 {
			break
		}
	}

	j.metrics.AddSweepTransitioned(total.transitioned)
	j.metrics.AddSweepDeferred(total.deferred)
	j.metrics.AddSweepFailed(total.failed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"event":        "stock.sweep",
		"transitioned": total.transitioned,
		"deferred":     total.deferred,
		"failed":       total.failed,
	})
	if total.err != nil {
		j.logg.Error(logCtx, "expiration sweep finished with errors", total.err)
		return total.transitioned, fmt.Errorf("expiration sweep: %w", total.err)
	}
	j.logg.Info(logCtx, "expiration sweep complete")
	return total.transitioned, nil
}

func (j *expirationSweepJob) sweepBatch(ctx context.Context, ids []uuid.UUID) sweepOutcome {
	var out sweepOutcome
	for _, id := range ids {
		var result stock.Result
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			result, err = j.writer.Mutate(ctx, tx, id, func(*models.StockRecord, *models.Product) error { return nil })
			return err
		})
		switch {
		case err == nil:
			if result.Changed && result.Record.Status == enums.StockStatusDiscarded {
				out.transitioned++
			}
		case errors.Is(err, stock.ErrContention) || db.IsContention(err):
			out.deferred++
		default:
			out.failed++
			out.err = multierr.Append(out.err, fmt.Errorf("record %s: %w", id, err))
		}
	}
	return out
}
