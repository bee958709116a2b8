package abandoned

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

type reminderSweepHarness struct {
	sweep     *ReminderSweep
	policies  *fakePolicies
	carts     *fakeCartRepo
	snapshots *fakeSnapshotRepo
	users     *fakeUserRepo
	sender    *fakeSender
	notifier  *fakeNotifier
}

func createReminderSweep(t *testing.T) *reminderSweepHarness {
	t.Helper()
	h := &reminderSweepHarness{
		policies: &fakePolicies{policy: &Policy{
			ID:                      uuid.New(),
			HoursAfterEmailIsSent:   24,
			DiscountPercent:         10,
			HoursAfterCartIsEmptied: 72,
		}},
		carts:     newFakeCartRepo(),
		snapshots: newFakeSnapshotRepo(),
		users:     newFakeUserRepo(),
		sender:    &fakeSender{},
		notifier:  &fakeNotifier{},
	}
	sweep, err := NewReminderSweep(ReminderSweepParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        &fakeTxRunner{},
		Policies:  h.policies,
		Carts:     h.carts,
		Snapshots: h.snapshots,
		Users:     h.users,
		Email:     h.sender,
		Notifier:  h.notifier,
	})
	if err != nil {
		t.Fatalf("NewReminderSweep: %v", err)
	}
	h.sweep = sweep
	return h
}

// staleCart registers a cart owner and returns a reminder candidate with one
// line of two 10.00 mugs. An empty email leaves the owner unmailable.
func (h *reminderSweepHarness) staleCart(email string) models.Cart {
	user := &models.User{ID: uuid.New(), Name: "Dana"}
	if email != "" {
		user.Email = strPtr(email)
	}
	h.users.byID[user.ID] = user

	product := &models.Product{ID: uuid.New(), Name: "Mug", SellingPrice: decimal.RequireFromString("10.00")}
	return models.Cart{
		ID:            uuid.New(),
		UserID:        user.ID,
		ReminderState: enums.ReminderStateNotReminded,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: product.ID, Quantity: 2, Product: product},
		},
	}
}

func TestReminderSweep_RemindsQualifyingCart(t *testing.T) {
	h := createReminderSweep(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.sweep.now = func() time.Time { return now }

	cart := h.staleCart("dana@example.com")
	h.carts.reminderCandidates = []models.Cart{cart}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CartsProcessed != 1 || result.CartsFailed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(h.snapshots.created) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(h.snapshots.created))
	}
	snap := h.snapshots.created[0]
	if snap.CartID != cart.ID || snap.UserID != cart.UserID || snap.Quantity != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.DiscountPercent != 10 {
		t.Fatalf("expected frozen discount 10, got %v", snap.DiscountPercent)
	}

	if len(h.carts.markedReminded) != 1 || h.carts.markedReminded[0] != cart.ID {
		t.Fatalf("expected cart marked reminded, got %v", h.carts.markedReminded)
	}
	// 2 x 10.00 at 10% off accrues a 2.00 discount.
	if got := h.carts.markedTotals[cart.ID]; got != 2 {
		t.Fatalf("expected discount total 2.00, got %v", got)
	}

	if len(h.sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(h.sender.sent))
	}
	if h.sender.sent[0].To != "dana@example.com" {
		t.Fatalf("unexpected recipient %q", h.sender.sent[0].To)
	}
	if !strings.Contains(h.sender.sent[0].TextBody, "Mug") {
		t.Fatalf("email body missing item:\n%s", h.sender.sent[0].TextBody)
	}

	if len(h.notifier.inputs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(h.notifier.inputs))
	}
	if h.notifier.inputs[0].Type != enums.NotificationTypeSystem {
		t.Fatalf("unexpected notification type %s", h.notifier.inputs[0].Type)
	}
}

func TestReminderSweep_NoActivePolicyIsCleanNoop(t *testing.T) {
	h := createReminderSweep(t)
	h.policies.policy = nil
	h.carts.reminderCandidates = []models.Cart{h.staleCart("dana@example.com")}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.PolicyMissing {
		t.Fatal("expected policy-missing result")
	}
	if len(h.snapshots.created) != 0 || len(h.carts.markedReminded) != 0 || len(h.sender.sent) != 0 {
		t.Fatal("expected zero mutations without an active policy")
	}
}

func TestReminderSweep_SkipsCartWithoutEmail(t *testing.T) {
	h := createReminderSweep(t)
	cart := h.staleCart("")
	h.carts.reminderCandidates = []models.Cart{cart}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CartsSkipped != 1 || result.CartsProcessed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.snapshots.created) != 0 {
		t.Fatal("expected no snapshots for skipped cart")
	}
}

func TestReminderSweep_SkipsCartWithDeletedOwner(t *testing.T) {
	h := createReminderSweep(t)
	cart := h.staleCart("dana@example.com")
	delete(h.users.byID, cart.UserID)
	h.carts.reminderCandidates = []models.Cart{cart}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CartsSkipped != 1 || result.CartsFailed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestReminderSweep_SkipsCartRemindedByConcurrentRun(t *testing.T) {
	h := createReminderSweep(t)
	cart := h.staleCart("dana@example.com")
	h.carts.reminderCandidates = []models.Cart{cart}
	h.carts.alreadyReminded[cart.ID] = true

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CartsSkipped != 1 || result.CartsProcessed != 0 || result.CartsFailed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.carts.markedReminded) != 0 {
		t.Fatalf("expected no state flip, got %v", h.carts.markedReminded)
	}
	if len(h.sender.sent) != 0 || len(h.notifier.inputs) != 0 {
		t.Fatalf("expected no delivery for a cart reminded elsewhere")
	}
}

func TestReminderSweep_IsolatesPerCartFailures(t *testing.T) {
	h := createReminderSweep(t)
	bad := h.staleCart("bad@example.com")
	good := h.staleCart("good@example.com")
	h.carts.reminderCandidates = []models.Cart{bad, good}

	wrapped := &failingOnceSnapshotRepo{inner: h.snapshots, failErr: errors.New("insert failed")}
	sweep, err := NewReminderSweep(ReminderSweepParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        &fakeTxRunner{},
		Policies:  h.policies,
		Carts:     h.carts,
		Snapshots: wrapped,
		Users:     h.users,
		Email:     h.sender,
		Notifier:  h.notifier,
	})
	if err != nil {
		t.Fatalf("NewReminderSweep: %v", err)
	}

	result, err := sweep.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error from failed cart")
	}
	if result.CartsFailed != 1 || result.CartsProcessed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.carts.markedReminded) != 1 || h.carts.markedReminded[0] != good.ID {
		t.Fatalf("expected only the healthy cart to be marked, got %v", h.carts.markedReminded)
	}
}

func TestReminderSweep_EmailFailureDoesNotFailCart(t *testing.T) {
	h := createReminderSweep(t)
	h.sender.err = errors.New("smtp down")
	cart := h.staleCart("dana@example.com")
	h.carts.reminderCandidates = []models.Cart{cart}

	result, err := h.sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("expected delivery failure to be swallowed, got %v", err)
	}
	if result.CartsProcessed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.carts.markedReminded) != 1 {
		t.Fatal("expected cart to stay marked despite email failure")
	}
}

type failingOnceSnapshotRepo struct {
	inner   *fakeSnapshotRepo
	failErr error
	calls   int
}

func (f *failingOnceSnapshotRepo) WithTx(tx *gorm.DB) SnapshotRepository { return f }

func (f *failingOnceSnapshotRepo) CreateBatch(ctx context.Context, items []models.AbandonedCartItem) error {
	f.calls++
	if f.calls == 1 {
		return f.failErr
	}
	return f.inner.CreateBatch(ctx, items)
}

func (f *failingOnceSnapshotRepo) ListByCart(ctx context.Context, cartID, userID uuid.UUID) ([]models.AbandonedCartItem, error) {
	return f.inner.ListByCart(ctx, cartID, userID)
}

func (f *failingOnceSnapshotRepo) DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	return f.inner.DeleteByCart(ctx, cartID)
}
