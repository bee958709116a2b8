package controllers

import (
	"net/http"

	"github.com/calebmonroy/storefront-backend/api/responses"
	"github.com/calebmonroy/storefront-backend/internal/cart"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

// GetCart returns the authenticated user's priced cart.
func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
