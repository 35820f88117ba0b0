package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func newLimiter(t *testing.T, rps float64, burst int) (*Limiter, *stepClock) {
	t.Helper()
	clk := &stepClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerSecond: rps, Burst: burst, Clock: clk})
	t.Cleanup(rl.Stop)
	return rl, clk
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	rl, clk := newLimiter(t, 1, 3)

	for i := 0; i < 3; i++ {
		d := rl.Allow("a")
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d Remaining = %d, want %d", i+1, d.Remaining, 2-i)
		}
	}

	d := rl.Allow("a")
	if d.Allowed {
		t.Fatal("fourth request should be rejected")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Second {
		t.Errorf("RetryAfter = %v, want within (0, 1s]", d.RetryAfter)
	}

	clk.now = clk.now.Add(time.Second)
	if !rl.Allow("a").Allowed {
		t.Error("request after refill should be allowed")
	}
	if rl.Rejected() != 1 {
		t.Errorf("Rejected() = %d, want 1", rl.Rejected())
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := newLimiter(t, 1, 1)

	if !rl.Allow("a").Allowed || !rl.Allow("b").Allowed {
		t.Fatal("first request of each client should pass")
	}
	if rl.Allow("a").Allowed {
		t.Error("client a should be limited")
	}
	if rl.ActiveClients() != 2 {
		t.Errorf("ActiveClients() = %d, want 2", rl.ActiveClients())
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clk := newLimiter(t, 1, 1)
	rl.Allow("old")
	clk.now = clk.now.Add(11 * time.Minute)
	rl.Allow("new")

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddleware_Headers(t *testing.T) {
	rl, _ := newLimiter(t, 1, 2)
	h := rl.Middleware(func(r *http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i, want := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != want {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, want)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
}
