package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gousa/visacrm/internal/platform/auth"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newLimitedHandler(cfg RateLimitConfig) (echo.HandlerFunc, *limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	l := newLimiter(cfg, clock.now)
	h := rateLimit(l)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return h, l, clock
}

func call(h echo.HandlerFunc, prepare func(*http.Request, echo.Context) *http.Request) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.RemoteAddr = "181.115.10.4:40000"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if prepare != nil {
		c.SetRequest(prepare(req, c))
	}
	return rec, h(c)
}

func TestRateLimit_BurstThenRefill(t *testing.T) {
	h, _, clock := newLimitedHandler(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 3})

	for i := 0; i < 3; i++ {
		rec, err := call(h, nil)
		if err != nil {
			t.Fatalf("request %d within burst: %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("unexpected limit header %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec, err := call(h, nil)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("unexpected headers: %v", rec.Header())
	}

	clock.advance(500 * time.Millisecond)
	if _, err := call(h, nil); err != nil {
		t.Errorf("expected one token after half a second at 2/s, got %v", err)
	}
}

func TestRateLimit_ZeroRateNeverRefills(t *testing.T) {
	h, _, clock := newLimitedHandler(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})
	if _, err := call(h, nil); err != nil {
		t.Fatalf("first request: %v", err)
	}
	clock.advance(time.Hour)
	rec, err := call(h, nil)
	if err == nil || rec.Header().Get("Retry-After") != "1" {
		t.Errorf("expected 429 with Retry-After 1, got %v", err)
	}
}

func TestRateLimit_StaffShareIPButNotBuckets(t *testing.T) {
	h, _, _ := newLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	as := func(user string) func(*http.Request, echo.Context) *http.Request {
		return func(r *http.Request, _ echo.Context) *http.Request {
			return r.WithContext(auth.WithUser(r.Context(), user, user, auth.RoleSecretary))
		}
	}

	if _, err := call(h, as("ana")); err != nil {
		t.Fatalf("ana: %v", err)
	}
	if _, err := call(h, as("ana")); err == nil {
		t.Fatal("ana's second request should be limited")
	}
	if _, err := call(h, as("luis")); err != nil {
		t.Errorf("luis behind the same IP should have his own bucket: %v", err)
	}
	if _, err := call(h, nil); err != nil {
		t.Errorf("anonymous caller should be keyed by IP: %v", err)
	}
}

func TestRateLimit_IdleBucketsAreDropped(t *testing.T) {
	h, l, clock := newLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	_, _ = call(h, nil)
	if l.size() != 1 {
		t.Fatalf("expected 1 bucket, got %d", l.size())
	}
	clock.advance(2 * time.Minute)
	_, _ = call(h, func(r *http.Request, _ echo.Context) *http.Request {
		return r.WithContext(auth.WithUser(r.Context(), "ana", "Ana", auth.RoleSecretary))
	})
	if l.size() != 1 {
		t.Errorf("expected the idle IP bucket to be swept, %d buckets left", l.size())
	}
}

func TestRateLimitKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	c := e.NewContext(req, httptest.NewRecorder())

	if got := rateLimitKey(c); got != "ip:10.0.0.7" {
		t.Errorf("got %q", got)
	}
	c.Set("jwt_office_id", "lpz")
	if got := rateLimitKey(c); got != "lpz|ip:10.0.0.7" {
		t.Errorf("got %q", got)
	}
	c.SetRequest(req.WithContext(auth.WithUser(req.Context(), "u-9", "Rosa", auth.RoleAdministrator)))
	if got := rateLimitKey(c); got != "lpz|user:u-9" {
		t.Errorf("got %q", got)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 50 || cfg.BurstSize != 100 || cfg.IdleTTL <= 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
