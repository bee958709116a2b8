package abandoned

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/internal/email"
	"github.com/calebmonroy/storefront-backend/internal/notifications"
	"github.com/calebmonroy/storefront-backend/pkg/db/models"
)

type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakePolicies struct {
	policy *Policy
	err    error
}

func (f *fakePolicies) ActivePolicy(ctx context.Context) (*Policy, error) {
	return f.policy, f.err
}

type fakeCartRepo struct {
	reminderCandidates []models.Cart
	expiryCandidates   []models.Cart
	cartsByID          map[uuid.UUID]*models.Cart
	cartsByUser        map[uuid.UUID]*models.Cart

	markedReminded  []uuid.UUID
	markedTotals    map[uuid.UUID]float64
	appliedTotals   map[uuid.UUID]float64
	resetCarts      []uuid.UUID
	deletedItems    []uuid.UUID
	alreadyReminded map[uuid.UUID]bool
	markRemindedErr error
	resetErr        error
	listErr         error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		cartsByID:       map[uuid.UUID]*models.Cart{},
		cartsByUser:     map[uuid.UUID]*models.Cart{},
		markedTotals:    map[uuid.UUID]float64{},
		appliedTotals:   map[uuid.UUID]float64{},
		alreadyReminded: map[uuid.UUID]bool{},
	}
}

func (f *fakeCartRepo) WithTx(tx *gorm.DB) CartRepository { return f }

func (f *fakeCartRepo) ListReminderCandidates(ctx context.Context, threshold time.Time) ([]models.Cart, error) {
	return f.reminderCandidates, f.listErr
}

func (f *fakeCartRepo) ListExpiryCandidates(ctx context.Context, threshold time.Time) ([]models.Cart, error) {
	return f.expiryCandidates, f.listErr
}

func (f *fakeCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := f.cartsByID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

func (f *fakeCartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, ok := f.cartsByUser[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

func (f *fakeCartRepo) MarkReminded(ctx context.Context, cartID uuid.UUID, at time.Time, discountTotal float64) (int64, error) {
	if f.markRemindedErr != nil {
		return 0, f.markRemindedErr
	}
	if f.alreadyReminded[cartID] {
		return 0, nil
	}
	f.markedReminded = append(f.markedReminded, cartID)
	f.markedTotals[cartID] = discountTotal
	return 1, nil
}

func (f *fakeCartRepo) SetAppliedFinalTotal(ctx context.Context, cartID uuid.UUID, finalTotal float64) error {
	f.appliedTotals[cartID] = finalTotal
	return nil
}

func (f *fakeCartRepo) ResetReminder(ctx context.Context, cartID uuid.UUID, now time.Time) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resetCarts = append(f.resetCarts, cartID)
	return nil
}

func (f *fakeCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	f.deletedItems = append(f.deletedItems, cartID)
	return 1, nil
}

type fakeSnapshotRepo struct {
	byCart    map[uuid.UUID][]models.AbandonedCartItem
	created   []models.AbandonedCartItem
	deleted   []uuid.UUID
	createErr error
	listErr   error
	deleteErr error
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{byCart: map[uuid.UUID][]models.AbandonedCartItem{}}
}

func (f *fakeSnapshotRepo) WithTx(tx *gorm.DB) SnapshotRepository { return f }

func (f *fakeSnapshotRepo) CreateBatch(ctx context.Context, items []models.AbandonedCartItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, items...)
	for _, item := range items {
		f.byCart[item.CartID] = append(f.byCart[item.CartID], item)
	}
	return nil
}

func (f *fakeSnapshotRepo) ListByCart(ctx context.Context, cartID, userID uuid.UUID) ([]models.AbandonedCartItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.AbandonedCartItem
	for _, item := range f.byCart[cartID] {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeSnapshotRepo) DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	count := int64(len(f.byCart[cartID]))
	delete(f.byCart, cartID)
	f.deleted = append(f.deleted, cartID)
	return count, nil
}

type fakeUserRepo struct {
	byID    map[uuid.UUID]*models.User
	findErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[uuid.UUID]*models.User{}}
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeNotifier struct {
	inputs []notifications.NotifyInput
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &models.Notification{ID: uuid.New(), UserID: input.UserID}, nil
}

func strPtr(v string) *string { return &v }
