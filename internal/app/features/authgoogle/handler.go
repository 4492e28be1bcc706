// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/store/audit"
	"github.com/advocacy-resources/advo-sub000/internal/app/store/oauthstate"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auditlog"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateTTL           = 10 * time.Minute
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var (
	errEmailNotVerified = errors.New("google account email is not verified")
	errUserDisabled     = errors.New("user is disabled")
)

// Handler handles Google OAuth authentication.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	StateStore *oauthstate.Store

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://api.example.org/api/v1/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's; tests point them at a
	// local server.
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	// AdminEmail, when set, makes a first sign-in with this address an admin.
	AdminEmail string

	users *userstore.Store
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	stateStore *oauthstate.Store,
	clientID, clientSecret, redirectURL, adminEmail string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:           db,
		Log:          logger,
		SessionMgr:   sessionMgr,
		ErrLog:       errLog,
		AuditLog:     audit,
		StateStore:   stateStore,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
		AdminEmail:   normalize.Email(adminEmail),
		users:        userstore.New(db),
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/v1/auth/google                                                      |
| Redirects to Google's consent screen. ?return= is where the browser lands    |
| after a successful callback.                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.ErrLog.Write(w, r, apierr.NotFound("google sign-in is not enabled"))
		return
	}

	state, err := generateState()
	if err != nil {
		h.ErrLog.LogServerError(w, r, "generate oauth state failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	returnURL := urlutil.SafeReturn(query.Get(r, "return"), "", "/")
	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().Add(stateTTL)); err != nil {
		h.ErrLog.LogServerError(w, r, "save oauth state failed", err)
		return
	}

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/v1/auth/google/callback                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.ErrLog.Write(w, r, apierr.NotFound("google sign-in is not enabled"))
		return
	}

	if e := query.Get(r, "error"); e != "" {
		h.Log.Info("google oauth declined", zap.String("error", e))
		h.ErrLog.Write(w, r, apierr.Unauthorized("google sign-in was cancelled"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctx, query.Get(r, "state"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "validate oauth state failed", err)
		return
	}
	if !valid {
		h.ErrLog.Write(w, r, apierr.BadRequest("invalid or expired sign-in state"))
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.ErrLog.Write(w, r, apierr.BadRequest("missing authorization code"))
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.ErrLog.Write(w, r, apierr.Unavailable("google sign-in failed", err))
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.ErrLog.Write(w, r, apierr.Unavailable("google sign-in failed", err))
		return
	}

	u, err := h.findOrCreateUser(ctx, r, info)
	switch {
	case errors.Is(err, errEmailNotVerified):
		h.ErrLog.Write(w, r, apierr.Forbidden("google account email is not verified"))
		return
	case errors.Is(err, errUserDisabled):
		h.ErrLog.Write(w, r, apierr.Forbidden("this account has been disabled"))
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "google user lookup failed", err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, userstore.SessionUser(u)); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err)
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, authutil.MethodGoogle, u.Email)
	h.Log.Info("user logged in via Google OAuth", zap.String("user_id", u.ID.Hex()))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

// googleUserInfo represents the user info returned by Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// fetchUserInfo retrieves user information from the userinfo endpoint.
func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauth2Config().Client(ctx, token)

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// findOrCreateUser resolves the Google account to a user:
//  1. a user already linked to the Google id;
//  2. a user with the same (verified) email, which gets linked;
//  3. otherwise a new user account.
func (h *Handler) findOrCreateUser(ctx context.Context, r *http.Request, info *googleUserInfo) (*models.User, error) {
	email := normalize.Email(info.Email)

	u, err := h.users.GetByGoogleID(ctx, info.ID)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return nil, err
	}

	if u == nil {
		if !info.EmailVerified || email == "" {
			return nil, errEmailNotVerified
		}
		u, err = h.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := h.users.LinkGoogle(ctx, u.ID, info.ID); err != nil {
				h.Log.Warn("failed to link google account", zap.Error(err), zap.String("user_id", u.ID.Hex()))
			}
		case errors.Is(err, userstore.ErrNotFound):
			return h.createUser(ctx, r, info, email)
		default:
			return nil, err
		}
	}

	if normalize.Status(u.Status) == models.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, u.Email, &u.ID, "user disabled")
		return nil, errUserDisabled
	}
	return u, nil
}

func (h *Handler) createUser(ctx context.Context, r *http.Request, info *googleUserInfo, email string) (*models.User, error) {
	name := normalize.Name(info.Name)
	if name == "" {
		name = email
	}
	role := models.RoleUser
	if h.AdminEmail != "" && email == h.AdminEmail {
		role = models.RoleAdmin
	}

	u, err := h.users.Create(ctx, models.User{
		Email:      email,
		Name:       name,
		AuthMethod: authutil.MethodGoogle,
		GoogleID:   info.ID,
		Role:       role,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Lost a race with a concurrent first sign-in; use the winner.
		return h.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	h.AuditLog.Registered(ctx, r, u.ID, authutil.MethodGoogle)
	return &u, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
