package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashank-materialplus/order-api/internal/usecase"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
}

func TestFetchSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("parses the wrapped product payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/products/p1" {
				t.Errorf("path = %q", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"time": "2026-08-29T10:00:00Z",
				"httpStatus": "OK",
				"isSuccess": true,
				"response": {"id":"p1","name":"Keyboard","unitPrice":1000,"availableStock":5}
			}`))
		}))
		defer srv.Close()

		snap, err := newTestClient(srv.URL).FetchSnapshot(ctx, "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.ID != "p1" || snap.Name != "Keyboard" || snap.UnitPriceCents != 1000 || snap.AvailableStock != 5 {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("404 is not found and not retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchSnapshot(ctx, "ghost")
		if usecase.CategoryOf(err) != usecase.CategoryNotFound {
			t.Fatalf("category = %q, want %q", usecase.CategoryOf(err), usecase.CategoryNotFound)
		}
		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Errorf("calls = %d, want 1 (no retry on 404)", n)
		}
	})

	t.Run("5xx is retried until the service recovers", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"isSuccess":true,"response":{"id":"p1","name":"Keyboard","unitPrice":1000,"availableStock":5}}`))
		}))
		defer srv.Close()

		snap, err := newTestClient(srv.URL).FetchSnapshot(ctx, "p1")
		if err != nil {
			t.Fatalf("unexpected error after retries: %v", err)
		}
		if snap.ID != "p1" {
			t.Errorf("snapshot = %+v", snap)
		}
		if n := atomic.LoadInt32(&calls); n != 3 {
			t.Errorf("calls = %d, want 3", n)
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchSnapshot(ctx, "p1")
		if usecase.CategoryOf(err) != usecase.CategoryUpstream {
			t.Fatalf("category = %q, want %q", usecase.CategoryOf(err), usecase.CategoryUpstream)
		}
		// initial attempt + MaxRetries
		if n := atomic.LoadInt32(&calls); n != 3 {
			t.Errorf("calls = %d, want 3", n)
		}
	})

	t.Run("unsuccessful envelope is a permanent upstream failure", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(`{"isSuccess":false,"response":null}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchSnapshot(ctx, "p1")
		if usecase.CategoryOf(err) != usecase.CategoryUpstream {
			t.Fatalf("category = %q, want %q", usecase.CategoryOf(err), usecase.CategoryUpstream)
		}
		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Errorf("calls = %d, want 1 (no retry on bad envelope)", n)
		}
	})
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the quantity once", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			if r.Method != http.MethodPost || r.URL.Path != "/api/v1/products/p1/purchase" {
				t.Errorf("request = %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		if err := newTestClient(srv.URL).DecrementStock(ctx, "p1", 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})

	t.Run("a 5xx fails immediately without retry", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		if err := newTestClient(srv.URL).DecrementStock(ctx, "p1", 2); err == nil {
			t.Fatal("expected error")
		}
		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Errorf("calls = %d, want exactly 1", n)
		}
	})

	t.Run("a conflict status surfaces as an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer srv.Close()

		if err := newTestClient(srv.URL).DecrementStock(ctx, "p1", 2); err == nil {
			t.Fatal("expected error on 409")
		}
	})
}
