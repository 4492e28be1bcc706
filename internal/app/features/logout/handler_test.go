package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advocacy-resources/advo-sub000/internal/app/features/logout"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"go.uber.org/zap"
)

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sessionMgr
}

func TestServeLogout_RequiresSignedIn(t *testing.T) {
	sessionMgr := newSessionManager(t)
	h := logout.NewHandler(sessionMgr, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	logout.Routes(h, sessionMgr).ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	sessionMgr := newSessionManager(t)
	h := logout.NewHandler(sessionMgr, nil, zap.NewNop())

	// Sign in first so the logout request carries a real cookie.
	rec1 := httptest.NewRecorder()
	req1 := httptest.NewRequest("POST", "/login", nil)
	if err := sessionMgr.SignIn(rec1, req1, &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Role: "user"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	req2 := httptest.NewRequest("POST", "/", nil)
	for _, c := range rec1.Result().Cookies() {
		req2.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	sessionMgr.LoadSessionUser(logout.Routes(h, sessionMgr)).ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec2.Code)
	}

	found := false
	for _, c := range rec2.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge after logout: got %d, want -1", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}
