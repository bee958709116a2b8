package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebmonroy/storefront-backend/internal/abandoned"
	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	pkgerrors "github.com/calebmonroy/storefront-backend/pkg/errors"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/pagination"
)

type testSettingsService struct {
	createFn func(ctx context.Context, input abandoned.CreateSettingInput) (*models.AbandonedCartSetting, error)
	updateFn func(ctx context.Context, id uuid.UUID, input abandoned.UpdateSettingInput) (*models.AbandonedCartSetting, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	listFn   func(ctx context.Context, params pagination.Params) (*abandoned.SettingsPage, error)
}

func (s *testSettingsService) Create(ctx context.Context, input abandoned.CreateSettingInput) (*models.AbandonedCartSetting, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s *testSettingsService) Update(ctx context.Context, id uuid.UUID, input abandoned.UpdateSettingInput) (*models.AbandonedCartSetting, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return nil, nil
}

func (s *testSettingsService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *testSettingsService) List(ctx context.Context, params pagination.Params) (*abandoned.SettingsPage, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &abandoned.SettingsPage{}, nil
}

func (s *testSettingsService) ActivePolicy(ctx context.Context) (*abandoned.Policy, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateAbandonedCartSetting(t *testing.T) {
	var got abandoned.CreateSettingInput
	svc := &testSettingsService{
		createFn: func(ctx context.Context, input abandoned.CreateSettingInput) (*models.AbandonedCartSetting, error) {
			got = input
			return &models.AbandonedCartSetting{
				ID:                      uuid.New(),
				HoursAfterEmailIsSent:   input.HoursAfterEmailIsSent,
				DiscountPercent:         input.DiscountPercent,
				HoursAfterCartIsEmptied: input.HoursAfterCartIsEmptied,
				IsActive:                input.IsActive,
			}, nil
		},
	}

	body := `{"hoursAfterEmailIsSent":24,"discountPercent":10,"hoursAfterCartIsEmptied":72,"isActive":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/abandoned-cart-settings", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CreateAbandonedCartSetting(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.HoursAfterEmailIsSent != 24 || got.DiscountPercent != 10 || got.HoursAfterCartIsEmptied != 72 || !got.IsActive {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestCreateAbandonedCartSettingBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/abandoned-cart-settings", strings.NewReader("{"))
	resp := httptest.NewRecorder()

	CreateAbandonedCartSetting(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestCreateAbandonedCartSettingRejectsUnknownFields(t *testing.T) {
	body := `{"hoursAfterEmailIsSent":24,"discountPercent":10,"hoursAfterCartIsEmptied":72,"bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/abandoned-cart-settings", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CreateAbandonedCartSetting(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateAbandonedCartSettingRejectsOutOfRangeDiscount(t *testing.T) {
	body := `{"hoursAfterEmailIsSent":24,"discountPercent":150,"hoursAfterCartIsEmptied":72}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/abandoned-cart-settings", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CreateAbandonedCartSetting(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateAbandonedCartSettingRejectsZeroHours(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/abandoned-cart-settings/"+id.String(), strings.NewReader(`{"hoursAfterEmailIsSent":0}`))
	req = withURLParam(req, "id", id.String())
	resp := httptest.NewRecorder()

	UpdateAbandonedCartSetting(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateAbandonedCartSettingPartial(t *testing.T) {
	id := uuid.New()
	var got abandoned.UpdateSettingInput
	svc := &testSettingsService{
		updateFn: func(ctx context.Context, gotID uuid.UUID, input abandoned.UpdateSettingInput) (*models.AbandonedCartSetting, error) {
			if gotID != id {
				t.Fatalf("unexpected id %s", gotID)
			}
			got = input
			return &models.AbandonedCartSetting{ID: id}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/abandoned-cart-settings/"+id.String(), strings.NewReader(`{"discountPercent":15}`))
	req = withURLParam(req, "id", id.String())
	resp := httptest.NewRecorder()

	UpdateAbandonedCartSetting(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.DiscountPercent == nil || *got.DiscountPercent != 15 {
		t.Fatalf("expected discountPercent pointer, got %+v", got)
	}
	if got.HoursAfterEmailIsSent != nil || got.IsActive != nil {
		t.Fatal("untouched fields must stay nil")
	}
}

func TestUpdateAbandonedCartSettingBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/abandoned-cart-settings/nope", strings.NewReader(`{}`))
	req = withURLParam(req, "id", "nope")
	resp := httptest.NewRecorder()

	UpdateAbandonedCartSetting(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestDeleteAbandonedCartSetting(t *testing.T) {
	id := uuid.New()
	svc := &testSettingsService{
		deleteFn: func(ctx context.Context, gotID uuid.UUID) error {
			if gotID != id {
				t.Fatalf("unexpected id %s", gotID)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/abandoned-cart-settings/"+id.String(), nil)
	req = withURLParam(req, "id", id.String())
	resp := httptest.NewRecorder()

	DeleteAbandonedCartSetting(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["status"] != "deleted" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestDeleteAbandonedCartSettingNotFound(t *testing.T) {
	id := uuid.New()
	svc := &testSettingsService{
		deleteFn: func(ctx context.Context, gotID uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/abandoned-cart-settings/"+id.String(), nil)
	req = withURLParam(req, "id", id.String())
	resp := httptest.NewRecorder()

	DeleteAbandonedCartSetting(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestListAbandonedCartSettings(t *testing.T) {
	svc := &testSettingsService{
		listFn: func(ctx context.Context, params pagination.Params) (*abandoned.SettingsPage, error) {
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if params.Cursor != "abc" {
				t.Fatalf("unexpected cursor %q", params.Cursor)
			}
			return &abandoned.SettingsPage{Items: []models.AbandonedCartSetting{{ID: uuid.New()}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/abandoned-cart-settings?limit=5&cursor=abc", nil)
	resp := httptest.NewRecorder()

	ListAbandonedCartSettings(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListAbandonedCartSettingsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/abandoned-cart-settings?limit=zero", nil)
	resp := httptest.NewRecorder()

	ListAbandonedCartSettings(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
