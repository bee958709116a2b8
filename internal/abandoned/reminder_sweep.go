package abandoned

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/internal/email"
	"github.com/calebmonroy/storefront-backend/internal/notifications"
	"github.com/calebmonroy/storefront-backend/internal/pricing"
	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type policyLoader interface {
	ActivePolicy(ctx context.Context) (*Policy, error)
}

type notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ReminderSweepParams configure the reminder sweep.
type ReminderSweepParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Policies  policyLoader
	Carts     CartRepository
	Snapshots SnapshotRepository
	Users     userLoader
	Email     email.Sender
	Notifier  notifier
}

// ReminderSweep finds idle carts, freezes their line items as discounted
// snapshots, and tells the owner. Failures are isolated per cart: one bad
// cart never stops the rest of the run.
type ReminderSweep struct {
	logg      *logger.Logger
	db        txRunner
	policies  policyLoader
	carts     CartRepository
	snapshots SnapshotRepository
	users     userLoader
	email     email.Sender
	notifier  notifier
	now       func() time.Time
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	PolicyMissing  bool
	CartsScanned   int
	CartsProcessed int
	CartsSkipped   int
	CartsFailed    int
}

// NewReminderSweep validates dependencies and builds the sweep.
func NewReminderSweep(params ReminderSweepParams) (*ReminderSweep, error) {
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
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Email == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &ReminderSweep{
		logg:      params.Logger,
		db:        params.DB,
		policies:  params.Policies,
		carts:     params.Carts,
		snapshots: params.Snapshots,
		users:     params.Users,
		email:     params.Email,
		notifier:  params.Notifier,
		now:       time.Now,
	}, nil
}

// Run executes one reminder sweep using the policy active at the start of
// the run. Without an active policy the run is a clean no-op.
func (s *ReminderSweep) Run(ctx context.Context) (SweepResult, error) {
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("load active policy: %w", err)
	}
	if policy == nil {
		s.logg.Info(ctx, "no active abandoned-cart policy; skipping reminder sweep")
		return SweepResult{PolicyMissing: true}, nil
	}

	now := s.now().UTC()
	threshold := now.Add(-time.Duration(policy.HoursAfterEmailIsSent) * time.Hour)

	carts, err := s.carts.ListReminderCandidates(ctx, threshold)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list reminder candidates: %w", err)
	}

	result := SweepResult{CartsScanned: len(carts)}
	var errs error
	for i := range carts {
		cart := &carts[i]
		cartCtx := s.logg.WithField(ctx, "cart_id", cart.ID.String())

		outcome, err := s.processCart(cartCtx, cart, policy, now)
		if err != nil {
			result.CartsFailed++
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", cart.ID, err))
			s.logg.Error(cartCtx, "reminder sweep cart failed", err)
			continue
		}
		if outcome == cartSkipped {
			result.CartsSkipped++
			continue
		}
		result.CartsProcessed++
	}
	return result, errs
}

type cartOutcome int

const (
	cartProcessed cartOutcome = iota
	cartSkipped
)

// errAlreadyReminded aborts the snapshot transaction when the reminder-state
// flip affects no rows.
var errAlreadyReminded = errors.New("cart already reminded")

func (s *ReminderSweep) processCart(ctx context.Context, cart *models.Cart, policy *Policy, now time.Time) (cartOutcome, error) {
	if len(cart.Items) == 0 {
		return cartSkipped, nil
	}

	// Re-read the owner; the candidate query's join may be stale by the time
	// this cart is reached, and a deleted account must not receive mail.
	owner, err := s.users.FindByID(ctx, cart.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cartSkipped, nil
		}
		return cartProcessed, fmt.Errorf("load cart owner: %w", err)
	}
	if owner.IsGuest || owner.Email == nil || *owner.Email == "" {
		return cartSkipped, nil
	}

	snapshots := make([]models.AbandonedCartItem, 0, len(cart.Items))
	lines := make([]email.ReminderLine, 0, len(cart.Items))
	var total, discountTotal float64

	for _, item := range cart.Items {
		unitPrice := pricing.UnitPrice(item.Product, item.Variant)
		lineTotal := pricing.LineTotal(item.Product, item.Variant, item.Quantity)
		discounted := pricing.ApplyDiscount(lineTotal, policy.DiscountPercent)

		total += lineTotal
		discountTotal += lineTotal - discounted

		snapshots = append(snapshots, models.AbandonedCartItem{
			CartID:          cart.ID,
			UserID:          cart.UserID,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			Quantity:        item.Quantity,
			DiscountPercent: policy.DiscountPercent,
		})
		lines = append(lines, email.ReminderLine{
			Name:            displayNameOrFallback(item.Product, item.Variant),
			Quantity:        item.Quantity,
			UnitPrice:       unitPrice,
			DiscountedPrice: pricing.ApplyDiscount(unitPrice, policy.DiscountPercent),
		})
	}
	total = pricing.Round(total)
	discountTotal = pricing.Round(discountTotal)

	msg, err := email.RenderCartReminder(*owner.Email, email.ReminderInput{
		RecipientName:   owner.Name,
		Lines:           lines,
		Total:           total,
		DiscountPercent: policy.DiscountPercent,
		DiscountedTotal: pricing.Round(total - discountTotal),
	})
	if err != nil {
		return cartProcessed, fmt.Errorf("render reminder: %w", err)
	}

	// Snapshots and the state flip commit together; a failed commit leaves
	// the cart eligible for the next run. Zero rows on the flip means a
	// concurrent run got there first, so the snapshots roll back with it.
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.snapshots.WithTx(tx).CreateBatch(ctx, snapshots); err != nil {
			return fmt.Errorf("persist snapshots: %w", err)
		}
		affected, err := s.carts.WithTx(tx).MarkReminded(ctx, cart.ID, now, discountTotal)
		if err != nil {
			return fmt.Errorf("mark reminded: %w", err)
		}
		if affected == 0 {
			return errAlreadyReminded
		}
		return nil
	})
	if errors.Is(err, errAlreadyReminded) {
		return cartSkipped, nil
	}
	if err != nil {
		return cartProcessed, err
	}

	// Delivery is best effort once the state is committed. A lost email or
	// notification is logged, not retried; the discount stands either way.
	if err := s.email.Send(ctx, msg); err != nil {
		s.logg.Error(ctx, "send reminder email", err)
	}
	if _, err := s.notifier.Notify(ctx, notifications.NotifyInput{
		UserID:  cart.UserID,
		Type:    enums.NotificationTypeSystem,
		Title:   "Your cart misses you",
		Message: fmt.Sprintf("Come back and save %.0f%% on the items you left behind.", policy.DiscountPercent),
	}); err != nil {
		s.logg.Error(ctx, "create reminder notification", err)
	}

	return cartProcessed, nil
}

func displayNameOrFallback(product *models.Product, variant *models.ProductVariant) string {
	if name := pricing.DisplayName(product, variant); name != "" {
		return name
	}
	return "Cart item"
}
