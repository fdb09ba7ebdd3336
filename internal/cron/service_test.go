package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.released++
	return nil
}

func (f *fakeLock) Holder(context.Context) (string, error) {
	if f.held {
		return "worker-b", nil
	}
	return "", nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.panic {
		panic("sweep exploded")
	}
	return t.err
}

func newTestCronService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		Clock:    clock.NewManual(time.Date(2026, 8, 3, 6, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	service := newTestCronService(t, lock, success, failure)

	require.NoError(t, service.runCycle(context.Background()))
	require.Equal(t, 1, success.runs)
	require.Equal(t, 1, failure.runs)
	require.Equal(t, 1, lock.released)
}

func TestServiceRunCycleSurvivesPanickingJob(t *testing.T) {
	boom := &testJob{name: "panics", panic: true}
	after := &testJob{name: "after"}
	service := newTestCronService(t, &fakeLock{}, boom, after)

	require.NotPanics(t, func() {
		require.NoError(t, service.runCycle(context.Background()))
	})
	require.Equal(t, 1, boom.runs)
	require.Equal(t, 1, after.runs)
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "sweep"}
	lock := &fakeLock{held: true}
	service := newTestCronService(t, lock, job)

	require.NoError(t, service.runCycle(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.released)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "sweep"}
	service := newTestCronService(t, &fakeLock{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, job.runs)
}
