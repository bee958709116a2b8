package abandoned

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
)

// CartRepository is the cart surface the sweeps and reconciliation need. It
// is deliberately separate from the storefront cart read path: these queries
// scan by reminder state and mutate reminder bookkeeping.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListReminderCandidates(ctx context.Context, threshold time.Time) ([]models.Cart, error)
	ListExpiryCandidates(ctx context.Context, threshold time.Time) ([]models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	MarkReminded(ctx context.Context, cartID uuid.UUID, at time.Time, discountTotal float64) (int64, error)
	SetAppliedFinalTotal(ctx context.Context, cartID uuid.UUID, finalTotal float64) error
	ResetReminder(ctx context.Context, cartID uuid.UUID, now time.Time) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type cartRepositoryImpl struct {
	db *gorm.DB
}

// NewCartRepository returns a sweep-facing cart repository.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepositoryImpl{db: db}
}

func (r *cartRepositoryImpl) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &cartRepositoryImpl{db: tx}
}

// ListReminderCandidates selects carts idle past the threshold that have not
// been reminded, hold at least one item, and belong to a non-guest user with
// an email address. Items and catalog references are preloaded because the
// sweep prices every line.
func (r *cartRepositoryImpl) ListReminderCandidates(ctx context.Context, threshold time.Time) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.Variant").
		Joins("JOIN users ON users.id = carts.user_id").
		Where("carts.updated_at < ?", threshold).
		Where("carts.reminder_state = ?", enums.ReminderStateNotReminded).
		Where("users.is_guest = ?", false).
		Where("users.email IS NOT NULL").
		Where("EXISTS (SELECT 1 FROM cart_items WHERE cart_items.cart_id = carts.id)").
		Order("carts.updated_at ASC, carts.id ASC").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

// ListExpiryCandidates selects reminded carts whose reminder is older than
// the expiry threshold.
func (r *cartRepositoryImpl) ListExpiryCandidates(ctx context.Context, threshold time.Time) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.db.WithContext(ctx).
		Where("reminder_state = ?", enums.ReminderStateReminded).
		Where("last_reminder_at < ?", threshold).
		Order("last_reminder_at ASC, id ASC").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *cartRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Items.Product").
		Preload("Items.Variant").
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepositoryImpl) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// MarkReminded flips the cart to reminded and freezes the accrued discount
// total. The reminder_state guard keeps a concurrent sweep from reminding
// the same cart twice; callers must treat zero rows affected as "someone
// else already reminded it" and roll back their snapshots.
func (r *cartRepositoryImpl) MarkReminded(ctx context.Context, cartID uuid.UUID, at time.Time, discountTotal float64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND reminder_state = ?", cartID, enums.ReminderStateNotReminded).
		Updates(map[string]any{
			"reminder_state":          enums.ReminderStateReminded,
			"last_reminder_at":        at,
			"reminder_discount_total": discountTotal,
		})
	return result.RowsAffected, result.Error
}

func (r *cartRepositoryImpl) SetAppliedFinalTotal(ctx context.Context, cartID uuid.UUID, finalTotal float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("applied_final_total", finalTotal).Error
}

// ResetReminder returns the cart to its initial reminder state. updated_at
// is bumped so the cart does not immediately requalify for a reminder.
func (r *cartRepositoryImpl) ResetReminder(ctx context.Context, cartID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"reminder_state":          enums.ReminderStateNotReminded,
			"last_reminder_at":        nil,
			"reminder_discount_total": nil,
			"applied_final_total":     nil,
			"updated_at":              now,
		}).Error
}

func (r *cartRepositoryImpl) DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.CartItem{}, "cart_id = ?", cartID)
	return result.RowsAffected, result.Error
}
