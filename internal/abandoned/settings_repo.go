package abandoned

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/pagination"
)

// SettingsRepository exposes persistence for reminder/discount policies.
type SettingsRepository interface {
	WithTx(tx *gorm.DB) SettingsRepository
	Create(ctx context.Context, setting *models.AbandonedCartSetting) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AbandonedCartSetting, error)
	FindActive(ctx context.Context) (*models.AbandonedCartSetting, error)
	List(ctx context.Context, params listSettingsParams) ([]models.AbandonedCartSetting, *pagination.Cursor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type settingsRepositoryImpl struct {
	db *gorm.DB
}

// NewSettingsRepository returns a settings repository bound to the provided database.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepositoryImpl{db: db}
}

type listSettingsParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

func (r *settingsRepositoryImpl) WithTx(tx *gorm.DB) SettingsRepository {
	if tx == nil {
		return r
	}
	return &settingsRepositoryImpl{db: tx}
}

func (r *settingsRepositoryImpl) Create(ctx context.Context, setting *models.AbandonedCartSetting) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

func (r *settingsRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.AbandonedCartSetting, error) {
	var setting models.AbandonedCartSetting
	if err := r.db.WithContext(ctx).First(&setting, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// FindActive returns the oldest active policy. Sweeps and reconciliation all
// consult this one row; ordering keeps the pick stable when several rows are
// flagged active.
func (r *settingsRepositoryImpl) FindActive(ctx context.Context) (*models.AbandonedCartSetting, error) {
	var setting models.AbandonedCartSetting
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingsRepositoryImpl) List(ctx context.Context, params listSettingsParams) ([]models.AbandonedCartSetting, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.AbandonedCartSetting{})
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var settings []models.AbandonedCartSetting
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&settings).Error; err != nil {
		return nil, nil, err
	}

	if len(settings) > normalized {
		next := settings[normalized]
		settings = settings[:normalized]
		return settings, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return settings, nil, nil
}

func (r *settingsRepositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AbandonedCartSetting{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *settingsRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.AbandonedCartSetting{}, "id = ?", id)
	return result.RowsAffected, result.Error
}
