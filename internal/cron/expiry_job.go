package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/metrics"
)

const defaultExpiryInterval = time.Hour

// ExpiryJobParams configure the expiry job.
type ExpiryJobParams struct {
	Logger   *logger.Logger
	Sweep    sweepRunner
	Metrics  *metrics.SweepJobMetrics
	Interval time.Duration
}

// NewExpiryJob wraps the expiry sweep as a scheduled job.
func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweep == nil {
		return nil, fmt.Errorf("expiry sweep required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultExpiryInterval
	}
	return &expiryJob{
		logg:     params.Logger,
		sweep:    params.Sweep,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

type expiryJob struct {
	logg     *logger.Logger
	sweep    sweepRunner
	metrics  *metrics.SweepJobMetrics
	interval time.Duration
}

func (j *expiryJob) Name() string            { return "abandoned-cart-expiry" }
func (j *expiryJob) Interval() time.Duration { return j.interval }

func (j *expiryJob) Run(ctx context.Context) error {
	result, err := j.sweep.Run(ctx)
	j.metrics.AddCartsProcessed(j.Name(), result.CartsProcessed)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"carts_scanned":   result.CartsScanned,
		"carts_processed": result.CartsProcessed,
		"carts_failed":    result.CartsFailed,
	})
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	j.logg.Info(logCtx, "expiry sweep complete")
	return nil
}
