package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl, stop := NewRateLimiter(1, 3)
	defer stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl, stop := NewRateLimiter(1, 1)
	defer stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req2.RemoteAddr = "10.0.0.1:5678"
	// Same IP, different port: the limiter keys on IP only.
	handler.ServeHTTP(second, req2)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimiter_IsolatesIPs(t *testing.T) {
	rl, stop := NewRateLimiter(1, 1)
	defer stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	a := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	a.RemoteAddr = "10.0.0.1:1"
	b := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	b.RemoteAddr = "10.0.0.2:1"

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, a)
	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, b)

	if recA.Code != http.StatusOK || recB.Code != http.StatusOK {
		t.Fatalf("statuses = %d/%d, want both 200 (independent buckets)", recA.Code, recB.Code)
	}
}
