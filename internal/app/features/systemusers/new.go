// internal/app/features/systemusers/new.go
package systemusers

import (
	"context"
	"net/http"

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

// HandleCreate handles POST /api/v1/admin/users. Admins use it to open
// accounts for business representatives and other admins.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)

	var req createRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	req.Email = normalize.Email(req.Email)
	req.Name = normalize.Name(req.Name)
	req.Role = normalize.Role(req.Role)
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.users.Create(ctx, models.User{
		Email:             req.Email,
		Name:              req.Name,
		PasswordHash:      &hash,
		AuthMethod:        authutil.MethodPassword,
		Role:              req.Role,
		ManagedResourceID: parseManaged(req.ManagedResourceID),
	})
	if err != nil {
		if ae := storeError(err); ae != nil {
			h.ErrLog.Write(w, r, ae)
			return
		}
		h.ErrLog.LogServerError(w, r, "create user failed", err)
		return
	}

	h.AuditLog.UserUpdated(ctx, r, actorID, u.ID, "created")
	h.Log.Info("user created by admin", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))
	jsonutil.WriteJSON(w, http.StatusCreated, u)
}
