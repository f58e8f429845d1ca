package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkoutRequest(key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		method   string
		pattern  string
		ok       bool
		required bool
	}{
		{http.MethodPost, "/api/v1/checkout", true, true},
		{http.MethodPost, "/api/v1/orders/{orderId}/cancel", true, false},
		{http.MethodPost, "/api/admin/v1/orders/{orderId}/complete", true, false},
		{http.MethodGet, "/api/v1/checkout", false, false},
		{http.MethodPost, "/api/v1/cart/items", false, false},
	}
	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.pattern)
		if ok != tt.ok || rule.required != tt.required {
			t.Fatalf("%s %s: got ok=%v required=%v", tt.method, tt.pattern, ok, rule.required)
		}
	}
}

func TestIdempotencyRequiresKeyForCheckout(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})
	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), time.Hour, nil)(handler).ServeHTTP(resp, checkoutRequest("", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatal("handler should not run without idempotency key")
	}
}

func TestIdempotencyOptionalKeyPassesThrough(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
	mw := Idempotency(newFakeStore(), time.Hour, nil)(handler)
	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/orders/x/cancel", "/api/v1/orders/{orderId}/cancel", nil)
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected both calls to run, got %d", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	})
	mw := Idempotency(store, 6*time.Hour, nil)(handler)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, checkoutRequest("abc", "{}"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	mw.ServeHTTP(replay, checkoutRequest("abc", "{}"))
	if replay.Code != http.StatusCreated || strings.TrimSpace(replay.Body.String()) != `{"data":{"id":"1"}}` {
		t.Fatalf("unexpected replay %d %s", replay.Code, replay.Body.String())
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("replay header missing")
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for key, ttl := range store.ttls {
		if ttl != 6*time.Hour {
			t.Fatalf("record %s stored with ttl %s", key, ttl)
		}
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	mw := Idempotency(newFakeStore(), time.Hour, nil)(handler)
	mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest("xyz", `{"a":1}`))

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, checkoutRequest("xyz", `{"a":2}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	duplicate := httptest.NewRecorder()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a second request with the same key lands while the first is running
		inner.ServeHTTP(duplicate, checkoutRequest("dup", ""))
		w.WriteHeader(http.StatusCreated)
	})
	inner = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("duplicate must not reach the handler")
	}))
	Idempotency(store, time.Hour, nil)(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest("dup", ""))

	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected 409 for in-flight duplicate, got %d", duplicate.Code)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, time.Hour, nil)(handler)

	mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest("retry", ""))
	second := httptest.NewRecorder()
	mw.ServeHTTP(second, checkoutRequest("retry", ""))
	if calls != 2 || second.Code != http.StatusCreated {
		t.Fatalf("expected retry to run, calls=%d status=%d", calls, second.Code)
	}
}
