package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebmonroy/storefront-backend/api/responses"
	"github.com/calebmonroy/storefront-backend/api/validators"
	"github.com/calebmonroy/storefront-backend/internal/abandoned"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/pagination"
)

type createSettingRequest struct {
	HoursAfterEmailIsSent   int     `json:"hoursAfterEmailIsSent" validate:"required,min=1"`
	DiscountPercent         float64 `json:"discountPercent" validate:"min=0,max=100"`
	HoursAfterCartIsEmptied int     `json:"hoursAfterCartIsEmptied" validate:"required,min=1"`
	IsActive                bool    `json:"isActive"`
}

type updateSettingRequest struct {
	HoursAfterEmailIsSent   *int     `json:"hoursAfterEmailIsSent" validate:"min=1"`
	DiscountPercent         *float64 `json:"discountPercent" validate:"min=0,max=100"`
	HoursAfterCartIsEmptied *int     `json:"hoursAfterCartIsEmptied" validate:"min=1"`
	IsActive                *bool    `json:"isActive"`
}

// ListAbandonedCartSettings returns policy records, newest first.
func ListAbandonedCartSettings(svc abandoned.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// CreateAbandonedCartSetting creates a policy record.
func CreateAbandonedCartSetting(svc abandoned.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSettingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setting, err := svc.Create(r.Context(), abandoned.CreateSettingInput{
			HoursAfterEmailIsSent:   req.HoursAfterEmailIsSent,
			DiscountPercent:         req.DiscountPercent,
			HoursAfterCartIsEmptied: req.HoursAfterCartIsEmptied,
			IsActive:                req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, setting)
	}
}

// UpdateAbandonedCartSetting applies a partial update to a policy record.
func UpdateAbandonedCartSetting(svc abandoned.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid setting id"))
			return
		}

		var req updateSettingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setting, err := svc.Update(r.Context(), id, abandoned.UpdateSettingInput{
			HoursAfterEmailIsSent:   req.HoursAfterEmailIsSent,
			DiscountPercent:         req.DiscountPercent,
			HoursAfterCartIsEmptied: req.HoursAfterCartIsEmptied,
			IsActive:                req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}

// DeleteAbandonedCartSetting removes a policy record.
func DeleteAbandonedCartSetting(svc abandoned.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid setting id"))
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
