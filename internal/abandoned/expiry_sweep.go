package abandoned

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

// ExpirySweepParams configure the expiry sweep.
type ExpirySweepParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Policies  policyLoader
	Carts     CartRepository
	Snapshots SnapshotRepository
}

// ExpirySweep empties carts whose reminder has gone unanswered past the
// policy's expiry window. The wipe is deliberate and irreversible: line items
// and snapshots are deleted, not archived.
type ExpirySweep struct {
	logg      *logger.Logger
	db        txRunner
	policies  policyLoader
	carts     CartRepository
	snapshots SnapshotRepository
	now       func() time.Time
}

// NewExpirySweep validates dependencies and builds the sweep.
func NewExpirySweep(params ExpirySweepParams) (*ExpirySweep, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy loader required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot repository required")
	}
	return &ExpirySweep{
		logg:      params.Logger,
		db:        params.DB,
		policies:  params.Policies,
		carts:     params.Carts,
		snapshots: params.Snapshots,
		now:       time.Now,
	}, nil
}

// Run wipes every reminded cart older than the expiry threshold. Each cart is
// wiped in its own transaction so one failure cannot stall the rest.
func (s *ExpirySweep) Run(ctx context.Context) (SweepResult, error) {
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("load active policy: %w", err)
	}
	if policy == nil {
		s.logg.Info(ctx, "no active abandoned-cart policy; skipping expiry sweep")
		return SweepResult{PolicyMissing: true}, nil
	}

	now := s.now().UTC()
	threshold := now.Add(-time.Duration(policy.HoursAfterCartIsEmptied) * time.Hour)

	carts, err := s.carts.ListExpiryCandidates(ctx, threshold)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list expiry candidates: %w", err)
	}

	result := SweepResult{CartsScanned: len(carts)}
	var errs error
	for i := range carts {
		cart := carts[i]
		cartCtx := s.logg.WithField(ctx, "cart_id", cart.ID.String())

		err := s.db.WithTx(cartCtx, func(tx *gorm.DB) error {
			if _, err := s.snapshots.WithTx(tx).DeleteByCart(cartCtx, cart.ID); err != nil {
				return fmt.Errorf("delete snapshots: %w", err)
			}
			if _, err := s.carts.WithTx(tx).DeleteItems(cartCtx, cart.ID); err != nil {
				return fmt.Errorf("delete cart items: %w", err)
			}
			if err := s.carts.WithTx(tx).ResetReminder(cartCtx, cart.ID, now); err != nil {
				return fmt.Errorf("reset reminder state: %w", err)
			}
			return nil
		})
		if err != nil {
			result.CartsFailed++
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", cart.ID, err))
			s.logg.Error(cartCtx, "expiry sweep cart failed", err)
			continue
		}
		result.CartsProcessed++
		s.logg.Info(cartCtx, "expired cart emptied")
	}
	return result, errs
}
