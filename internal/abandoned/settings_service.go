package abandoned

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
	"github.com/calebmonroy/storefront-backend/pkg/pagination"
)

// SettingsService manages the admin-facing reminder/discount policy records.
type SettingsService interface {
	Create(ctx context.Context, input CreateSettingInput) (*models.AbandonedCartSetting, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateSettingInput) (*models.AbandonedCartSetting, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) (*SettingsPage, error)
	ActivePolicy(ctx context.Context) (*Policy, error)
}

type settingsService struct {
	repo SettingsRepository
}

// NewSettingsService wires the policy service.
func NewSettingsService(repo SettingsRepository) (SettingsService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings repository required")
	}
	return &settingsService{repo: repo}, nil
}

// CreateSettingInput carries a full policy definition.
type CreateSettingInput struct {
	HoursAfterEmailIsSent   int
	DiscountPercent         float64
	HoursAfterCartIsEmptied int
	IsActive                bool
}

// UpdateSettingInput carries a partial policy update; nil fields are left untouched.
type UpdateSettingInput struct {
	HoursAfterEmailIsSent   *int
	DiscountPercent         *float64
	HoursAfterCartIsEmptied *int
	IsActive                *bool
}

// SettingsPage wraps a page of policies and the cursor for the next page.
type SettingsPage struct {
	Items  []models.AbandonedCartSetting `json:"items"`
	Cursor string                        `json:"cursor"`
}

// Policy is the per-run snapshot of the active configuration. Sweeps load it
// once at the start of a run so a mid-run admin edit cannot skew results.
type Policy struct {
	ID                      uuid.UUID
	HoursAfterEmailIsSent   int
	DiscountPercent         float64
	HoursAfterCartIsEmptied int
}

func validateHours(field string, hours int) error {
	if hours <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must be positive")
	}
	return nil
}

func validateDiscount(percent float64) error {
	if percent < 0 || percent > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}
	return nil
}

func (s *settingsService) Create(ctx context.Context, input CreateSettingInput) (*models.AbandonedCartSetting, error) {
	if err := validateHours("hours after email is sent", input.HoursAfterEmailIsSent); err != nil {
		return nil, err
	}
	if err := validateHours("hours after cart is emptied", input.HoursAfterCartIsEmptied); err != nil {
		return nil, err
	}
	if err := validateDiscount(input.DiscountPercent); err != nil {
		return nil, err
	}

	setting := &models.AbandonedCartSetting{
		HoursAfterEmailIsSent:   input.HoursAfterEmailIsSent,
		DiscountPercent:         input.DiscountPercent,
		HoursAfterCartIsEmptied: input.HoursAfterCartIsEmptied,
		IsActive:                input.IsActive,
	}
	if err := s.repo.Create(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create abandoned cart setting")
	}
	return setting, nil
}

func (s *settingsService) Update(ctx context.Context, id uuid.UUID, input UpdateSettingInput) (*models.AbandonedCartSetting, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting id required")
	}

	updates := map[string]any{}
	if input.HoursAfterEmailIsSent != nil {
		if err := validateHours("hours after email is sent", *input.HoursAfterEmailIsSent); err != nil {
			return nil, err
		}
		updates["hours_after_email_is_sent"] = *input.HoursAfterEmailIsSent
	}
	if input.HoursAfterCartIsEmptied != nil {
		if err := validateHours("hours after cart is emptied", *input.HoursAfterCartIsEmptied); err != nil {
			return nil, err
		}
		updates["hours_after_cart_is_emptied"] = *input.HoursAfterCartIsEmptied
	}
	if input.DiscountPercent != nil {
		if err := validateDiscount(*input.DiscountPercent); err != nil {
			return nil, err
		}
		updates["discount_percent"] = *input.DiscountPercent
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	affected, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update abandoned cart setting")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "abandoned cart setting not found")
	}

	setting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload abandoned cart setting")
	}
	return setting, nil
}

func (s *settingsService) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting id required")
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete abandoned cart setting")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "abandoned cart setting not found")
	}
	return nil
}

func (s *settingsService) List(ctx context.Context, params pagination.Params) (*SettingsPage, error) {
	query := listSettingsParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list abandoned cart settings")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &SettingsPage{Items: rows, Cursor: cursor}, nil
}

// ActivePolicy loads the active configuration snapshot. A nil policy with a
// nil error means no policy is active.
func (s *settingsService) ActivePolicy(ctx context.Context) (*Policy, error) {
	setting, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active policy")
	}
	return &Policy{
		ID:                      setting.ID,
		HoursAfterEmailIsSent:   setting.HoursAfterEmailIsSent,
		DiscountPercent:         setting.DiscountPercent,
		HoursAfterCartIsEmptied: setting.HoursAfterCartIsEmptied,
	}, nil
}
