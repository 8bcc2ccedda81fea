package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medsupply/medsupply/internal/platform/auth"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(okHandler)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	e := echo.New()
	handler := rateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}, clock.now)(okHandler)

	for i := 0; i < 2; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	rec := httptest.NewRecorder()
	err := handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	clock.advance(time.Second)
	if err := handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())); err != nil {
		t.Errorf("expected a token after refill, got %v", err)
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	e := echo.New()
	handler := rateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock.now)(okHandler)

	as := func(user string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: user}))
		return e.NewContext(req, httptest.NewRecorder())
	}

	if err := handler(as("asha")); err != nil {
		t.Fatalf("first request for asha: %v", err)
	}
	if err := handler(as("asha")); err == nil {
		t.Error("second request for asha should be limited")
	}
	if err := handler(as("ravi")); err != nil {
		t.Errorf("ravi has a separate bucket: %v", err)
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestTokenBucket_ZeroRate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := newTokenBucket(0, 1, now)
	if ok, _ := b.take(now); !ok {
		t.Fatal("expected the burst token")
	}
	ok, retry := b.take(now.Add(time.Hour))
	if ok || retry != 1 {
		t.Errorf("expected refusal with retry 1, got ok=%v retry=%d", ok, retry)
	}
}

func TestTokenBucket_RetryAfter(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		elapsed time.Duration
		want    int
	}{
		{"one per second, empty", 1, 0, 1},
		{"one per second, half refilled", 1, 500 * time.Millisecond, 1},
		{"one every two seconds", 0.5, 0, 2},
		{"one every four seconds", 0.25, 0, 4},
		{"three per second", 3, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Unix(1700000000, 0)
			b := newTokenBucket(tt.rate, 1, now)
			if ok, _ := b.take(now); !ok {
				t.Fatal("expected the burst token")
			}
			ok, retry := b.take(now.Add(tt.elapsed))
			if ok {
				t.Fatal("expected refusal")
			}
			if retry != tt.want {
				t.Errorf("retry after = %d, want %d", retry, tt.want)
			}
		})
	}
}
