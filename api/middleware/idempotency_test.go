package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeIdempotencyStore struct {
	values map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{values: map[string]string{}}
}

func (f *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func applyDiscountRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/abandoned/apply-discount", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	var handlerRuns atomic.Int32
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRuns.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"finalTotal":18}}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, applyDiscountRequest(`{"cartId":"abc"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, applyDiscountRequest(`{"cartId":"abc"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"data":{"finalTotal":18}}` {
		t.Fatalf("replay returned wrong body: %s", got)
	}
	if handlerRuns.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d", handlerRuns.Load())
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, applyDiscountRequest(`{"cartId":"abc"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, applyDiscountRequest(`{"cartId":"different"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected conflict for reused key, got %d", rec.Code)
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/abandoned/apply-discount", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", rec.Code)
	}
}

func TestIdempotencyGuardsRoutesMountedOnGroup(t *testing.T) {
	store := newFakeIdempotencyStore()
	var handlerRuns atomic.Int32

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Post("/abandoned/apply-discount", func(w http.ResponseWriter, req *http.Request) {
			handlerRuns.Add(1)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":{"finalTotal":18}}`))
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/abandoned/apply-discount", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key on group-mounted route, got %d", rec.Code)
	}

	r.ServeHTTP(httptest.NewRecorder(), applyDiscountRequest(`{"cartId":"abc"}`))
	if len(store.values) != 1 {
		t.Fatalf("expected a stored response, store holds %d keys", len(store.values))
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, applyDiscountRequest(`{"cartId":"abc"}`))
	if handlerRuns.Load() != 1 {
		t.Fatalf("expected replay to skip the handler, ran %d", handlerRuns.Load())
	}
	if got := rec.Body.String(); got != `{"data":{"finalTotal":18}}` {
		t.Fatalf("replay returned wrong body: %s", got)
	}
}

func TestIdempotencyMatchesParameterizedRule(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/5f0c2c4e/read", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key on parameterized route, got %d", rec.Code)
	}
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	var handlerRuns atomic.Int32
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRuns.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if handlerRuns.Load() != 2 {
		t.Fatalf("expected unguarded route to always run, ran %d", handlerRuns.Load())
	}
}
