package abandoned

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

type expirySweepHarness struct {
	sweep     *ExpirySweep
	policies  *fakePolicies
	carts     *fakeCartRepo
	snapshots *fakeSnapshotRepo
}

func createExpirySweep(t *testing.T) *expirySweepHarness {
	t.Helper()
	h := &expirySweepHarness{
		policies: &fakePolicies{policy: &Policy{
			ID:                      uuid.New(),
			HoursAfterEmailIsSent:   24,
			DiscountPercent:         10,
			HoursAfterCartIsEmptied: 72,
		}},
		carts:     newFakeCartRepo(),
		snapshots: newFakeSnapshotRepo(),
	}
	sweep, err := NewExpirySweep(ExpirySweepParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        &fakeTxRunner{},
		Policies:  h.policies,
		Carts:     h.carts,
		Snapshots: h.snapshots,
	})
	if err != nil {
		t.Fatalf("NewExpirySweep: %v", err)
	}
	h.sweep = sweep
	return h
}

func remindedCart(lastReminder time.Time) models.Cart {
	total := 2.0
	return models.Cart{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		ReminderState:         enums.ReminderStateReminded,
		LastReminderAt:        &lastReminder,
		ReminderDiscountTotal: &total,
	}
}

func TestExpirySweep_WipesExpiredCart(t *testing.T) {
	h := createExpirySweep(t)
	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	h.sweep.now = func() time.Time { return now }

	cart := remindedCart(now.Add(-100 * time.Hour))
	h.carts.expiryCandidates = []models.Cart{cart}
	h.snapshots.byCart[cart.ID] = []models.AbandonedCartItem{
		{ID: uuid.New(), CartID: cart.ID, UserID: cart.UserID, ProductID: uuid.New(), Quantity: 1, DiscountPercent: 10},
	}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CartsProcessed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(h.snapshots.deleted) != 1 || h.snapshots.deleted[0] != cart.ID {
		t.Fatalf("expected snapshots wiped, got %v", h.snapshots.deleted)
	}
	if len(h.carts.deletedItems) != 1 || h.carts.deletedItems[0] != cart.ID {
		t.Fatalf("expected cart items wiped, got %v", h.carts.deletedItems)
	}
	if len(h.carts.resetCarts) != 1 || h.carts.resetCarts[0] != cart.ID {
		t.Fatalf("expected reminder state reset, got %v", h.carts.resetCarts)
	}
}

func TestExpirySweep_NoActivePolicyIsCleanNoop(t *testing.T) {
	h := createExpirySweep(t)
	h.policies.policy = nil
	h.carts.expiryCandidates = []models.Cart{remindedCart(time.Now().Add(-100 * time.Hour))}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.PolicyMissing {
		t.Fatal("expected policy-missing result")
	}
	if len(h.carts.resetCarts) != 0 || len(h.carts.deletedItems) != 0 {
		t.Fatal("expected zero mutations without an active policy")
	}
}

func TestExpirySweep_IsolatesPerCartFailures(t *testing.T) {
	h := createExpirySweep(t)
	now := time.Now().UTC()
	first := remindedCart(now.Add(-100 * time.Hour))
	second := remindedCart(now.Add(-90 * time.Hour))
	h.carts.expiryCandidates = []models.Cart{first, second}

	failingSnapshots := &failingOnceSnapshotDeleter{inner: h.snapshots, failErr: errors.New("delete failed")}
	sweep, err := NewExpirySweep(ExpirySweepParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        &fakeTxRunner{},
		Policies:  h.policies,
		Carts:     h.carts,
		Snapshots: failingSnapshots,
	})
	if err != nil {
		t.Fatalf("NewExpirySweep: %v", err)
	}

	result, err := sweep.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error from failed cart")
	}
	if result.CartsFailed != 1 || result.CartsProcessed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.carts.resetCarts) != 1 || h.carts.resetCarts[0] != second.ID {
		t.Fatalf("expected only the second cart to be reset, got %v", h.carts.resetCarts)
	}
}

type failingOnceSnapshotDeleter struct {
	inner   *fakeSnapshotRepo
	failErr error
	calls   int
}

func (f *failingOnceSnapshotDeleter) WithTx(tx *gorm.DB) SnapshotRepository { return f }

func (f *failingOnceSnapshotDeleter) CreateBatch(ctx context.Context, items []models.AbandonedCartItem) error {
	return f.inner.CreateBatch(ctx, items)
}

func (f *failingOnceSnapshotDeleter) ListByCart(ctx context.Context, cartID, userID uuid.UUID) ([]models.AbandonedCartItem, error) {
	return f.inner.ListByCart(ctx, cartID, userID)
}

func (f *failingOnceSnapshotDeleter) DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	f.calls++
	if f.calls == 1 {
		return 0, f.failErr
	}
	return f.inner.DeleteByCart(ctx, cartID)
}
