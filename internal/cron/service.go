package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/freshroute-backend/pkg/clock"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Clock    clock.Clock
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the
// distributed lock, so only one worker sweeps at a time.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	clock    clock.Clock
	interval time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.Real()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		clock:    clk,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx is
// canceled. A failed cycle is logged and the loop keeps going.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.logg.Info(s.logg.WithField(ctx, "interval", s.interval.String()), "cron service started")
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		skipCtx := ctx
		if holder, err := s.lock.Holder(ctx); err == nil && holder != "" {
			skipCtx = s.logg.WithField(ctx, "held_by", holder)
		}
		s.logg.Info(skipCtx, "another cron instance holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	cycleCtx := s.logg.WithField(ctx, "cycle_started_at", s.clock.Now().Format(time.RFC3339))
	failed := 0
	for _, job := range s.registry.Jobs() {
		if err := s.runJob(cycleCtx, job); err != nil {
			failed++
		}
	}
	cycleCtx = s.logg.WithFields(cycleCtx, map[string]any{
		"jobs":   len(s.registry.Jobs()),
		"failed": failed,
	})
	s.logg.Info(cycleCtx, "scheduled run complete")
	return nil
}

// runJob executes one job, converting a panic into a failure so the other
// jobs in the cycle still run.
func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
		duration := time.Since(start)
		s.metrics.ObserveDuration(job.Name(), duration)
		jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
		if err != nil {
			s.logg.Error(jobCtx, "job failed", err)
			s.metrics.IncFailure(job.Name())
			return
		}
		s.logg.Info(jobCtx, "job completed")
		s.metrics.IncSuccess(job.Name(), s.clock.Now())
	}()
	return job.Run(jobCtx)
}
