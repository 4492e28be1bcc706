// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/validate"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"go.uber.org/zap"
)

var errAccountGone = apierr.NotFound("account not found")

type demographicsInput struct {
	AgeRange          string `json:"age_range" validate:"max=50"`
	Gender            string `json:"gender" validate:"max=50"`
	RaceEthnicity     string `json:"race_ethnicity" validate:"max=100"`
	IncomeRange       string `json:"income_range" validate:"max=50"`
	ZipCode           string `json:"zip_code" validate:"omitempty,zipcode"`
	State             string `json:"state" validate:"omitempty,len=2,alpha"`
	PreferredLanguage string `json:"preferred_language" validate:"max=50"`
	VeteranStatus     string `json:"veteran_status" validate:"max=50"`
	DisabilityStatus  string `json:"disability_status" validate:"max=50"`
	HouseholdSize     int    `json:"household_size" validate:"min=0,max=50"`
}

type updateRequest struct {
	Name         string            `json:"name" validate:"required,max=100"`
	Demographics demographicsInput `json:"demographics"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (d demographicsInput) toModel() models.Demographics {
	return models.Demographics{
		AgeRange:          normalize.Name(d.AgeRange),
		Gender:            normalize.Name(d.Gender),
		RaceEthnicity:     normalize.Name(d.RaceEthnicity),
		IncomeRange:       normalize.Name(d.IncomeRange),
		ZipCode:           d.ZipCode,
		State:             d.State,
		PreferredLanguage: normalize.Name(d.PreferredLanguage),
		VeteranStatus:     normalize.Name(d.VeteranStatus),
		DisabilityStatus:  normalize.Name(d.DisabilityStatus),
		HouseholdSize:     d.HouseholdSize,
	}
}

// currentUser loads the signed-in user. ok is false after an error
// response has been written.
func (h *Handler) currentUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return nil, false
	}
	u, err := h.users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, errAccountGone)
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err)
		return nil, false
	}
	return u, true
}

// ServeProfile handles GET /api/v1/users/me.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.currentUser(ctx, w, r)
	if !ok {
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, u)
}

// HandleUpdate handles PUT /api/v1/users/me. The whole demographics block
// is replaced; omitted fields are cleared.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}

	var req updateRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Demographics.ZipCode = normalize.ZipCode(req.Demographics.ZipCode)
	req.Demographics.State = strings.ToUpper(strings.TrimSpace(req.Demographics.State))
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.UpdateProfile(ctx, uid, req.Name, req.Demographics.toModel())
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, errAccountGone)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update profile failed", err)
		return
	}

	// Keep the cached session name in step for review bylines.
	if err := h.SessionMgr.SignIn(w, r, userstore.SessionUser(u)); err != nil {
		h.Log.Warn("profile: refresh session", zap.Error(err))
	}
	jsonutil.WriteJSON(w, http.StatusOK, u)
}

// HandleChangePassword handles PUT /api/v1/users/me/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, ok := h.currentUser(ctx, w, r)
	if !ok {
		return
	}

	// Google-only accounts have no password to change.
	if u.PasswordHash == nil {
		h.ErrLog.Write(w, r, apierr.BadRequest("password sign-in is not enabled for this account"))
		return
	}
	if !authutil.CheckPassword(req.CurrentPassword, *u.PasswordHash) {
		h.ErrLog.Write(w, r, apierr.Invalid(map[string]string{"current_password": "is incorrect"}))
		return
	}
	if err := authutil.ValidatePassword(req.NewPassword); err != nil {
		h.ErrLog.Write(w, r, apierr.Invalid(map[string]string{"new_password": authutil.PasswordMessage(err)}))
		return
	}
	if authutil.CheckPassword(req.NewPassword, *u.PasswordHash) {
		h.ErrLog.Write(w, r, apierr.Invalid(map[string]string{"new_password": "must differ from the current password"}))
		return
	}

	hash, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err)
		return
	}
	if err := h.users.SetPassword(ctx, u.ID, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "update password failed", err)
		return
	}

	h.AuditLog.PasswordChanged(ctx, r, u.ID)
	jsonutil.NoContent(w)
}

// HandleDelete handles DELETE /api/v1/users/me. Everything the user owns is
// removed and the session is ended.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.users.Delete(ctx, uid); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.Write(w, r, errAccountGone)
			return
		}
		h.ErrLog.LogServerError(w, r, "delete account failed", err)
		return
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("profile: clear session after delete", zap.Error(err))
	}
	h.AuditLog.AccountDeleted(ctx, r, uid)
	h.Log.Info("account deleted", zap.String("user_id", uid.Hex()))
	jsonutil.NoContent(w)
}
