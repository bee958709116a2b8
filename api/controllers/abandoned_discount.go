package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/calebmonroy/storefront-backend/api/middleware"
	"github.com/calebmonroy/storefront-backend/api/responses"
	"github.com/calebmonroy/storefront-backend/api/validators"
	"github.com/calebmonroy/storefront-backend/internal/abandoned"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

// GetAbandonedCartDiscount previews the still-honorable discount for a cart.
func GetAbandonedCartDiscount(svc abandoned.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("cartId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id"))
			return
		}

		quote, err := svc.PreviewDiscount(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type applyDiscountRequest struct {
	CartID uuid.UUID `json:"cartId" validate:"required"`
}

// ApplyAbandonedCartDiscount recomputes the discount and persists the final
// total on the cart.
func ApplyAbandonedCartDiscount(svc abandoned.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied, err := svc.ApplyDiscount(r.Context(), req.CartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, applied)
	}
}

// GetUserAbandonedItems lists the caller's abandoned-item snapshots. An
// explicit userId query parameter is honored for admins only.
func GetUserAbandonedItems(svc abandoned.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolveTargetUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.UserItems(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func resolveTargetUser(r *http.Request) (uuid.UUID, error) {
	caller := middleware.UserIDFromContext(r.Context())
	callerID, err := uuid.Parse(caller)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	requested := strings.TrimSpace(r.URL.Query().Get("userId"))
	if requested == "" {
		return callerID, nil
	}

	target, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	if target != callerID && middleware.RoleFromContext(r.Context()) != string(enums.UserRoleAdmin) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another user's abandoned items")
	}
	return target, nil
}
