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
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func postRequest(url string, body io.Reader) *http.Request {
	return httptest.NewRequest(http.MethodPost, url, body)
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"order dispatch", http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true},
		{"vote submit", http.MethodPost, "/api/v1/votes/sites/123", defaultIdempotencyTTL, true},
		{"achievement check", http.MethodPost, "/api/v1/achievements/check", defaultIdempotencyTTL, true},
		{"achievement claim", http.MethodPost, "/api/v1/achievements/456/claim", defaultIdempotencyTTL, true},
		{"wheel spin", http.MethodPost, "/api/v1/wheel/spin", defaultIdempotencyTTL, true},
		{"non idempotent", http.MethodGet, "/api/v1/wheel", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"abc"}`))
	})

	req := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"order_id":"abc"}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"abc"}`))
	})

	first := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	first.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	changed := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"webshop"}`))
	changed.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, changed)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "IDEMPOTENCY_KEY_REUSED" {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

// The middleware is mounted with r.Use inside the /api/v1 group, where chi has
// not resolved the full route pattern yet. The rule table must engage off the
// request path alone.
func TestIdempotencyMiddlewareEngagesUnderMountedGroup(t *testing.T) {
	store := newFakeStore()
	var calls int

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Post("/orders", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusCreated)
		})
	})

	missing := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, missing)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times without an idempotency key", calls)
	}

	first := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	first.Header.Set("Idempotency-Key", "abc")
	r.ServeHTTP(httptest.NewRecorder(), first)

	replay := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected exactly 1", calls)
	}
}

func TestIdempotencyMiddlewareScopesByAccount(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	first := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	first.Header.Set("Idempotency-Key", "abc")
	first = first.WithContext(WithAccountID(first.Context(), "account-a"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := postRequest("/api/v1/orders", strings.NewReader(`{"flow":"bundle"}`))
	second.Header.Set("Idempotency-Key", "abc")
	second = second.WithContext(WithAccountID(second.Context(), "account-b"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), second)

	if calls != 2 {
		t.Fatalf("expected both accounts to execute, got %d calls", calls)
	}
}
