package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

type fakeExpirer struct {
	cutoffs []time.Time
	batches []int
	err     error
}

func (f *fakeExpirer) ExpirePending(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func newPendingOrderJob(t *testing.T, expirer *fakeExpirer, now time.Time) Job {
	t.Helper()
	job, err := NewPendingOrderExpiryJob(PendingOrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders: expirer,
		Clock:  clock.NewManual(now),
		TTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	return job
}

func TestPendingOrderExpiryUsesTTLCutoff(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{batches: []int{pendingOrderBatchSize, 3}}
	job := newPendingOrderJob(t, expirer, now)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, expirer.cutoffs, 2)
	require.True(t, expirer.cutoffs[0].Equal(now.Add(-24*time.Hour)))
}

func TestPendingOrderExpiryPropagatesError(t *testing.T) {
	job := newPendingOrderJob(t, &fakeExpirer{err: errors.New("db down")}, time.Now())
	require.Error(t, job.Run(context.Background()))
}

func TestNewPendingOrderExpiryJobRequiresOrders(t *testing.T) {
	_, err := NewPendingOrderExpiryJob(PendingOrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.Error(t, err)
}
