package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// fixedClock pins l to a controllable time.
func fixedClock(l *Limiter) *time.Time {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_AllowAndRemaining(t *testing.T) {
	l := New(2, time.Minute)
	fixedClock(l)

	if l.Remaining("a") != 2 {
		t.Errorf("Remaining before use: got %d", l.Remaining("a"))
	}
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if l.Allow("a") {
		t.Error("third request should be blocked")
	}
	if l.Remaining("a") != 0 {
		t.Errorf("Remaining after limit: got %d", l.Remaining("a"))
	}
	if !l.Allow("b") {
		t.Error("other keys are independent")
	}
}

func TestLimiter_Refills(t *testing.T) {
	l := New(1, time.Minute)
	now := fixedClock(l)

	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("expected block while the bucket is empty")
	}
	if d := l.RetryAfter("a"); d <= 59*time.Second || d > time.Minute {
		t.Errorf("RetryAfter: got %v, want about a minute", d)
	}
	// Asking for RetryAfter must not spend a token.
	if d := l.RetryAfter("a"); d > time.Minute {
		t.Errorf("RetryAfter consumed a token: got %v", d)
	}

	*now = now.Add(61 * time.Second)
	if l.RetryAfter("a") != 0 {
		t.Error("expected no wait after refill")
	}
	if !l.Allow("a") {
		t.Error("expected allow after refill")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)
	fixedClock(l)
	l.Allow("a")
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("expected allow after Reset")
	}
}

func TestLimiter_SweepDropsIdleKeys(t *testing.T) {
	l := New(1, time.Minute)
	now := fixedClock(l)
	l.Allow("idle")

	*now = now.Add(3 * time.Minute)
	l.Allow("fresh")
	l.sweep()

	l.mu.Lock()
	_, idle := l.visitors["idle"]
	_, fresh := l.visitors["fresh"]
	l.mu.Unlock()
	if idle || !fresh {
		t.Errorf("after sweep: idle kept=%v fresh kept=%v", idle, fresh)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"remote addr", "", "10.0.0.5:12345", "10.0.0.5"},
		{"remote no port", "", "10.0.0.5", "10.0.0.5"},
		{"forwarded header ignored", "203.0.113.5", "10.0.0.5:1", "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPerIP_RotatingForwardedForDoesNotBypass(t *testing.T) {
	h := PerIP(New(1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	for _, xff := range []string{"198.51.100.1", "198.51.100.2"} {
		r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		r.RemoteAddr = "192.0.2.10:4000"
		r.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("second request from the same peer: got %d, want 429", codes[1])
	}
}

func TestPerIP_BehindRealIP(t *testing.T) {
	h := middleware.RealIP(PerIP(New(1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for _, xff := range []string{"198.51.100.1", "198.51.100.2"} {
		r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:4000"
		r.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Errorf("client %s behind a trusted proxy: got %d", xff, rec.Code)
		}
	}
}

func TestPerIP(t *testing.T) {
	h := PerIP(New(1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest("POST", "/api/v1/auth/register", nil))
	if first.Code != http.StatusCreated {
		t.Fatalf("first: got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest("POST", "/api/v1/auth/register", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second: got %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "Ana@Example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, reason := ll.Check(r, "ana@example.com")
	if ok || reason == "" {
		t.Error("third attempt for the same email should be blocked with a reason")
	}

	ll.ResetEmail(" ANA@example.com ")
	if ok, _ := ll.Check(r, "ana@example.com"); !ok {
		t.Error("expected allow after ResetEmail")
	}
}
