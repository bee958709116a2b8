package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/calebmonroy/storefront-backend/internal/abandoned"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/metrics"
)

const defaultReminderInterval = 15 * time.Minute

// sweepRunner is the surface both sweeps expose to the worker.
type sweepRunner interface {
	Run(ctx context.Context) (abandoned.SweepResult, error)
}

// ReminderJobParams configure the reminder job.
type ReminderJobParams struct {
	Logger   *logger.Logger
	Sweep    sweepRunner
	Metrics  *metrics.SweepJobMetrics
	Interval time.Duration
}

// NewReminderJob wraps the reminder sweep as a scheduled job.
func NewReminderJob(params ReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweep == nil {
		return nil, fmt.Errorf("reminder sweep required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	return &reminderJob{
		logg:     params.Logger,
		sweep:    params.Sweep,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

type reminderJob struct {
	logg     *logger.Logger
	sweep    sweepRunner
	metrics  *metrics.SweepJobMetrics
	interval time.Duration
}

func (j *reminderJob) Name() string            { return "abandoned-cart-reminder" }
func (j *reminderJob) Interval() time.Duration { return j.interval }

func (j *reminderJob) Run(ctx context.Context) error {
	result, err := j.sweep.Run(ctx)
	j.metrics.AddCartsProcessed(j.Name(), result.CartsProcessed)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"carts_scanned":   result.CartsScanned,
		"carts_processed": result.CartsProcessed,
		"carts_skipped":   result.CartsSkipped,
		"carts_failed":    result.CartsFailed,
	})
	if err != nil {
		return fmt.Errorf("reminder sweep: %w", err)
	}
	j.logg.Info(logCtx, "reminder sweep complete")
	return nil
}
