package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/internal/pricing"
	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
)

// Service exposes cart read operations for the storefront.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type service struct {
	repo Repository
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	return &service{repo: repo}, nil
}

// CartView is the storefront projection of a live cart. Prices are resolved
// from the catalog at read time; a frozen reminder discount is surfaced when
// the reminder sweep has processed the cart.
type CartView struct {
	ID                    uuid.UUID           `json:"id"`
	ReminderState         enums.ReminderState `json:"reminderState"`
	LastReminderAt        *time.Time          `json:"lastReminderAt,omitempty"`
	Items                 []CartItemView      `json:"items"`
	Total                 float64             `json:"total"`
	ReminderDiscountTotal *float64            `json:"reminderDiscountTotal,omitempty"`
	AppliedFinalTotal     *float64            `json:"appliedFinalTotal,omitempty"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

// CartItemView is a priced line item.
type CartItemView struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unitPrice"`
	LineTotal float64    `json:"lineTotal"`
}

// GetCart loads and prices the user's cart.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	return projectCart(record), nil
}

func projectCart(record *models.Cart) *CartView {
	view := &CartView{
		ID:                    record.ID,
		ReminderState:         record.ReminderState,
		LastReminderAt:        record.LastReminderAt,
		Items:                 make([]CartItemView, 0, len(record.Items)),
		ReminderDiscountTotal: record.ReminderDiscountTotal,
		AppliedFinalTotal:     record.AppliedFinalTotal,
		UpdatedAt:             record.UpdatedAt,
	}

	for _, item := range record.Items {
		line := CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      pricing.DisplayName(item.Product, item.Variant),
			Quantity:  item.Quantity,
			UnitPrice: pricing.UnitPrice(item.Product, item.Variant),
			LineTotal: pricing.LineTotal(item.Product, item.Variant, item.Quantity),
		}
		view.Items = append(view.Items, line)
		view.Total += line.LineTotal
	}
	view.Total = pricing.Round(view.Total)

	return view
}
