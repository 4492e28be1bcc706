// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/store/audit"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auditlog"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/ratelimit"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/validate"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// errBadCredentials is the single answer for unknown emails and wrong
// passwords so the endpoint does not reveal which accounts exist.
var errBadCredentials = apierr.Unauthorized("invalid email or password")

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter

	// AdminEmail, when set, makes a registration with this address an admin.
	AdminEmail string

	users *userstore.Store
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	adminEmail string,
	logger *zap.Logger,
) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    limiter,
		AdminEmail: normalize.Email(adminEmail),
		users:      userstore.New(db),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Register                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
}

// HandleRegister handles POST /api/v1/auth/register. The new account is
// signed in immediately.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	req.Email = normalize.Email(req.Email)
	req.Name = normalize.Name(req.Name)
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := authutil.ValidatePassword(req.Password); err != nil {
		h.ErrLog.Write(w, r, apierr.Invalid(map[string]string{"password": authutil.PasswordMessage(err)}))
		return
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err)
		return
	}

	role := models.RoleUser
	if h.AdminEmail != "" && req.Email == h.AdminEmail {
		role = models.RoleAdmin
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.users.Create(ctx, models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &hash,
		AuthMethod:   authutil.MethodPassword,
		Role:         role,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.ErrLog.Write(w, r, apierr.Conflict("an account with this email already exists"))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user failed", err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, userstore.SessionUser(&u)); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err)
		return
	}

	h.AuditLog.Registered(ctx, r, u.ID, authutil.MethodPassword)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))

	jsonutil.WriteJSON(w, http.StatusCreated, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles POST /api/v1/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if ok, msg := h.Limiter.Check(r, req.Email); !ok {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, req.Email, nil, "rate limited")
		h.ErrLog.Write(w, r, apierr.TooManyRequests(msg))
		return
	}

	u, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, req.Email, nil, "user not found")
		h.ErrLog.Write(w, r, errBadCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err)
		return
	}

	// Google-only accounts have no hash and cannot log in with a password.
	if u.PasswordHash == nil || !authutil.CheckPassword(req.Password, *u.PasswordHash) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, req.Email, &u.ID, "wrong password")
		h.ErrLog.Write(w, r, errBadCredentials)
		return
	}

	if normalize.Status(u.Status) == models.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, req.Email, &u.ID, "user disabled")
		h.ErrLog.Write(w, r, apierr.Forbidden("this account has been disabled"))
		return
	}

	if err := h.SessionMgr.SignIn(w, r, userstore.SessionUser(u)); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err)
		return
	}
	h.Limiter.ResetEmail(req.Email)

	h.AuditLog.LoginSuccess(ctx, r, u.ID, authutil.MethodPassword, u.Email)
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))

	jsonutil.WriteJSON(w, http.StatusOK, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSession handles GET /api/v1/auth/session and returns the signed-in
// user's account.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load session user failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, u)
}
