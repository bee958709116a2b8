package abandoned

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebmonroy/storefront-backend/internal/pricing"
	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
)

// ReconcileService matches the live cart against its reminder snapshots to
// decide how much of the promised discount is still honorable.
type ReconcileService interface {
	PreviewDiscount(ctx context.Context, cartID uuid.UUID) (*DiscountQuote, error)
	ApplyDiscount(ctx context.Context, cartID uuid.UUID) (*AppliedDiscount, error)
	UserItems(ctx context.Context, userID uuid.UUID) ([]SnapshotView, error)
}

type reconcileService struct {
	db        txRunner
	carts     CartRepository
	snapshots SnapshotRepository
}

// NewReconcileService wires the reconciliation service.
func NewReconcileService(db txRunner, carts CartRepository, snapshots SnapshotRepository) (ReconcileService, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db runner required")
	}
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if snapshots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "snapshot repository required")
	}
	return &reconcileService{db: db, carts: carts, snapshots: snapshots}, nil
}

// QuoteLine is one live cart line with its reconciliation outcome.
type QuoteLine struct {
	ProductID       uuid.UUID  `json:"productId"`
	VariantID       *uuid.UUID `json:"variantId,omitempty"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	UnitPrice       float64    `json:"unitPrice"`
	DiscountPercent float64    `json:"discountPercent,omitempty"`
	DiscountAmount  float64    `json:"discountAmount"`
}

// DiscountQuote partitions cart lines into discounted and unmatched.
type DiscountQuote struct {
	CartID        uuid.UUID   `json:"cartId"`
	HasSnapshots  bool        `json:"hasSnapshots"`
	TotalDiscount float64     `json:"totalDiscount"`
	Discounted    []QuoteLine `json:"discounted"`
	Unmatched     []QuoteLine `json:"unmatched"`
}

// AppliedDiscount is the persisted outcome of an apply call.
type AppliedDiscount struct {
	DiscountQuote
	Subtotal   float64 `json:"subtotal"`
	FinalTotal float64 `json:"finalTotal"`
}

// SnapshotView projects one abandoned-item snapshot for the API.
type SnapshotView struct {
	ID              uuid.UUID  `json:"id"`
	ProductID       uuid.UUID  `json:"productId"`
	VariantID       *uuid.UUID `json:"variantId,omitempty"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	DiscountPercent float64    `json:"discountPercent"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// PreviewDiscount computes the honorable discount without persisting anything.
func (s *reconcileService) PreviewDiscount(ctx context.Context, cartID uuid.UUID) (*DiscountQuote, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}

	cart, err := s.loadCart(ctx, s.carts, cartID)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.snapshots.ListByCart(ctx, cart.ID, cart.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshots")
	}

	quote := reconcile(cart, snapshots)
	return &quote, nil
}

// ApplyDiscount recomputes the quote and persists the final total on the
// cart, all inside one transaction so a concurrent cart edit cannot wedge an
// inconsistent total.
func (s *reconcileService) ApplyDiscount(ctx context.Context, cartID uuid.UUID) (*AppliedDiscount, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}

	var applied *AppliedDiscount
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		cart, err := s.loadCart(ctx, carts, cartID)
		if err != nil {
			return err
		}
		snapshots, err := s.snapshots.WithTx(tx).ListByCart(ctx, cart.ID, cart.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshots")
		}

		quote := reconcile(cart, snapshots)

		var subtotal float64
		for _, item := range cart.Items {
			subtotal += pricing.LineTotal(item.Product, item.Variant, item.Quantity)
		}
		subtotal = pricing.Round(subtotal)
		finalTotal := pricing.Round(subtotal - quote.TotalDiscount)

		if err := carts.SetAppliedFinalTotal(ctx, cart.ID, finalTotal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist final total")
		}

		applied = &AppliedDiscount{
			DiscountQuote: quote,
			Subtotal:      subtotal,
			FinalTotal:    finalTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// UserItems lists the snapshots attached to the user's cart. A user without
// a cart simply has no abandoned items.
func (s *reconcileService) UserItems(ctx context.Context, userID uuid.UUID) ([]SnapshotView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []SnapshotView{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	snapshots, err := s.snapshots.ListByCart(ctx, cart.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshots")
	}

	views := make([]SnapshotView, 0, len(snapshots))
	for _, snap := range snapshots {
		views = append(views, SnapshotView{
			ID:              snap.ID,
			ProductID:       snap.ProductID,
			VariantID:       snap.VariantID,
			Name:            displayNameOrFallback(snap.Product, snap.Variant),
			Quantity:        snap.Quantity,
			DiscountPercent: snap.DiscountPercent,
			CreatedAt:       snap.CreatedAt,
		})
	}
	return views, nil
}

func (s *reconcileService) loadCart(ctx context.Context, carts CartRepository, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// reconcile walks the live cart lines and consumes at most one snapshot per
// line. A snapshot matches only on the exact (product, variant, quantity)
// triple; quantity drift since the reminder voids the line's discount.
// Snapshots are consumed in insertion order so repeated calls are stable even
// when several reminder cycles left duplicate triples.
func reconcile(cart *models.Cart, snapshots []models.AbandonedCartItem) DiscountQuote {
	quote := DiscountQuote{
		CartID:       cart.ID,
		HasSnapshots: len(snapshots) > 0,
		Discounted:   []QuoteLine{},
		Unmatched:    []QuoteLine{},
	}

	consumed := make([]bool, len(snapshots))
	for _, item := range cart.Items {
		line := QuoteLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      displayNameOrFallback(item.Product, item.Variant),
			Quantity:  item.Quantity,
			UnitPrice: pricing.UnitPrice(item.Product, item.Variant),
		}

		matched := -1
		if quote.HasSnapshots {
			for i, snap := range snapshots {
				if consumed[i] {
					continue
				}
				if snap.ProductID == item.ProductID && uuidPtrEqual(snap.VariantID, item.VariantID) && snap.Quantity == item.Quantity {
					matched = i
					break
				}
			}
		}

		if matched < 0 {
			quote.Unmatched = append(quote.Unmatched, line)
			continue
		}

		consumed[matched] = true
		snap := snapshots[matched]
		lineTotal := pricing.LineTotal(item.Product, item.Variant, item.Quantity)
		line.DiscountPercent = snap.DiscountPercent
		line.DiscountAmount = pricing.Round(lineTotal - pricing.ApplyDiscount(lineTotal, snap.DiscountPercent))
		quote.TotalDiscount += line.DiscountAmount
		quote.Discounted = append(quote.Discounted, line)
	}
	quote.TotalDiscount = pricing.Round(quote.TotalDiscount)
	return quote
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
