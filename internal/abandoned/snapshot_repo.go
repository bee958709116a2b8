package abandoned

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
)

// SnapshotRepository manages the abandoned-item rows written by the reminder
// sweep. Rows are plain derived records; the sweeps own their lifecycle.
type SnapshotRepository interface {
	WithTx(tx *gorm.DB) SnapshotRepository
	CreateBatch(ctx context.Context, items []models.AbandonedCartItem) error
	ListByCart(ctx context.Context, cartID, userID uuid.UUID) ([]models.AbandonedCartItem, error)
	DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type snapshotRepositoryImpl struct {
	db *gorm.DB
}

// NewSnapshotRepository returns a snapshot repository bound to the provided database.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepositoryImpl{db: db}
}

func (r *snapshotRepositoryImpl) WithTx(tx *gorm.DB) SnapshotRepository {
	if tx == nil {
		return r
	}
	return &snapshotRepositoryImpl{db: tx}
}

func (r *snapshotRepositoryImpl) CreateBatch(ctx context.Context, items []models.AbandonedCartItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// ListByCart returns the cart's snapshots in insertion order, with catalog
// references preloaded. Insertion order makes snapshot matching deterministic
// when several reminder cycles left rows for the same line.
func (r *snapshotRepositoryImpl) ListByCart(ctx context.Context, cartID, userID uuid.UUID) ([]models.AbandonedCartItem, error) {
	var items []models.AbandonedCartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Variant").
		Where("cart_id = ? AND user_id = ?", cartID, userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *snapshotRepositoryImpl) DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.AbandonedCartItem{}, "cart_id = ?", cartID)
	return result.RowsAffected, result.Error
}
