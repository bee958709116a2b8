package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/metrics"
)

// LockFactory builds the single-flight lock for a named job.
type LockFactory func(jobName string) (Lock, error)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.SweepJobMetrics
}

// Service runs every registered job on its own ticker. Each tick acquires
// the job's lock first, so overlapping runs (slow sweep, second worker
// instance) collapse to one.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.SweepJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
	}, nil
}

// Run starts every job loop and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	jobs := s.registry.Jobs()
	var wg sync.WaitGroup
	for _, job := range jobs {
		lock, err := s.locks(job.Name())
		if err != nil {
			return fmt.Errorf("build lock for %s: %w", job.Name(), err)
		}
		wg.Add(1)
		go func(job Job, lock Lock) {
			defer wg.Done()
			s.runLoop(ctx, job, lock)
		}(job, lock)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, job Job, lock Lock) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	s.logg.Info(jobCtx, "job loop starting")

	s.runOnce(jobCtx, job, lock)
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(jobCtx, "job loop stopped")
			return
		case <-ticker.C:
			s.runOnce(jobCtx, job, lock)
		}
	}
}

func (s *Service) runOnce(ctx context.Context, job Job, lock Lock) {
	locked, err := lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(ctx, "previous run still holds the lock; skipping")
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "lock release failed", relErr)
		}
	}()

	s.logg.Info(ctx, "job start")
	start := time.Now()
	runErr := job.Run(ctx)
	duration := time.Since(start)

	s.metrics.ObserveDuration(job.Name(), duration)
	logCtx := s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if runErr != nil {
		s.metrics.IncFailure(job.Name())
		s.logg.Error(logCtx, "job failed", runErr)
		return
	}
	s.metrics.IncSuccess(job.Name())
	s.logg.Info(logCtx, "job completed")
}
