package login_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/features/login"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/ratelimit"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/advocacy-resources/advo-sub000/internal/testutil"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery"

func newTestHandler(t *testing.T, limiter *ratelimit.LoginLimiter) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	errLog := uierrors.NewErrorLogger(logger)

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	// Pass nil for the audit logger in tests (its methods are nil-safe).
	handler := login.NewHandler(db, sessionMgr, errLog, nil, limiter, "boss@example.com", logger)
	return handler, testutil.NewFixtures(t, db)
}

func withPassword(t *testing.T, f *testutil.Fixtures, u models.User) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hash, err := authutil.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := userstore.New(f.DB()).SetPassword(ctx, u.ID, hash); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
}

func hasSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestHandleRegister_CreatesAndSignsIn(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := testutil.NewJSONRequest(t, "POST", "/register", map[string]string{
		"email":    "New.Person@Example.com",
		"password": testPassword,
		"name":     "  New   Person ",
	})
	rec := testutil.NewRecorder()
	handler.HandleRegister(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var u models.User
	rec.DecodeJSON(t, &u)
	if u.Email != "new.person@example.com" {
		t.Errorf("email: got %q, want normalized", u.Email)
	}
	if u.Name != "New Person" {
		t.Errorf("name: got %q", u.Name)
	}
	if u.Role != models.RoleUser {
		t.Errorf("role: got %q, want %q", u.Role, models.RoleUser)
	}
	if !hasSessionCookie(rec.ResponseRecorder) {
		t.Error("expected session cookie to be set")
	}
	rec.AssertNotContains(t, "password_hash")
	rec.AssertNotContains(t, "$2a$")
}

func TestHandleRegister_AdminEmailGetsAdminRole(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := testutil.NewJSONRequest(t, "POST", "/register", map[string]string{
		"email": "BOSS@example.com", "password": testPassword, "name": "Boss",
	})
	rec := testutil.NewRecorder()
	handler.HandleRegister(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var u models.User
	rec.DecodeJSON(t, &u)
	if u.Role != models.RoleAdmin {
		t.Errorf("role: got %q, want admin", u.Role)
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"bad email", map[string]string{"email": "nope", "password": testPassword, "name": "A"}, "email"},
		{"short password", map[string]string{"email": "a@example.com", "password": "short", "name": "A"}, "password"},
		{"common password", map[string]string{"email": "a@example.com", "password": "password1", "name": "A"}, "password"},
		{"missing name", map[string]string{"email": "a@example.com", "password": testPassword}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			handler.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/register", tt.body))

			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, `"`+tt.field+`"`)
		})
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateUser(ctx, "Taken", "taken@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	handler.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/register", map[string]string{
		"email": "taken@example.com", "password": testPassword, "name": "Again",
	}))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleLogin_Success(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Login User", "login@example.com", models.RoleUser)
	withPassword(t, fixtures, u)

	rec := testutil.NewRecorder()
	handler.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", map[string]string{
		"email": "LOGIN@example.com", "password": testPassword,
	}))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, u.ID.Hex())
	if !hasSessionCookie(rec.ResponseRecorder) {
		t.Error("expected session cookie to be set")
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Login User", "login@example.com", models.RoleUser)
	withPassword(t, fixtures, u)

	for _, body := range []map[string]string{
		{"email": "login@example.com", "password": "wrong-password-here"},
		{"email": "nobody@example.com", "password": testPassword},
	} {
		rec := testutil.NewRecorder()
		handler.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", body))
		rec.AssertStatus(t, http.StatusUnauthorized)
		rec.AssertContains(t, "invalid email or password")
	}
}

func TestHandleLogin_DisabledUser(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateDisabledUser(ctx, "Disabled", "disabled@example.com")
	withPassword(t, fixtures, u)

	rec := testutil.NewRecorder()
	handler.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", map[string]string{
		"email": "disabled@example.com", "password": testPassword,
	}))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	handler, _ := newTestHandler(t, limiter)

	body := map[string]string{"email": "target@example.com", "password": "wrong-password-here"}
	for i := 0; i < 2; i++ {
		rec := testutil.NewRecorder()
		handler.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", body))
		rec.AssertStatus(t, http.StatusUnauthorized)
	}

	rec := testutil.NewRecorder()
	handler.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", body))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}

func TestServeSession(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	handler.ServeSession(rec, testutil.NewRequest("GET", "/session"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	u := fixtures.CreateUser(ctx, "Session User", "session@example.com", models.RoleUser)
	rec = testutil.NewRecorder()
	handler.ServeSession(rec, testutil.NewAuthenticatedRequest("GET", "/session", testutil.FromModel(u)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "session@example.com")
}
