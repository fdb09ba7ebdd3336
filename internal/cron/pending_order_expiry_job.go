package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	pendingOrderBatchSize  = 200
)

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// PendingOrderExpiryJobParams configure the pending order expiry job.
type PendingOrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders pendingOrderExpirer
	Clock  clock.Clock
	TTL    time.Duration
}

// NewPendingOrderExpiryJob builds the job that cancels orders left pending
// longer than the TTL, releasing their reservations.
func NewPendingOrderExpiryJob(params PendingOrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &pendingOrderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		clock:  clk,
		ttl:    ttl,
	}, nil
}

type pendingOrderExpiryJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	clock  clock.Clock
	ttl    time.Duration
}

func (j *pendingOrderExpiryJob) Name() string { return "pending-order-expiry" }

func (j *pendingOrderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.clock.Now().Add(-j.ttl)
	total := 0
	for {
		cancelled, err := j.orders.ExpirePending(ctx, cutoff, pendingOrderBatchSize)
		total += cancelled
		if err != nil {
			return fmt.Errorf("pending order expiry: %w", err)
		}
		if cancelled < pendingOrderBatchSize {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": total,
	})
	j.logg.Info(logCtx, "pending order expiry complete")
	return nil
}
