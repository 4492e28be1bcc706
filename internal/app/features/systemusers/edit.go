// internal/app/features/systemusers/edit.go
package systemusers

import (
	"context"
	"net/http"
	"strings"

	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/validate"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// HandleEdit handles PUT /api/v1/admin/users/{id}. Admins may not demote
// or disable their own account.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	id, ok := userID(w, r, h.ErrLog)
	if !ok {
		return
	}

	var req updateRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if req.Name != nil {
		n := normalize.Name(*req.Name)
		req.Name = &n
	}
	if req.Role != nil {
		v := normalize.Role(*req.Role)
		req.Role = &v
	}
	if req.Status != nil {
		v := normalize.Status(*req.Status)
		req.Status = &v
	}
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	if id == actorID {
		if req.Role != nil && *req.Role != models.RoleAdmin {
			h.ErrLog.Write(w, r, apierr.BadRequest("you cannot remove your own admin role"))
			return
		}
		if req.Status != nil && *req.Status != models.StatusActive {
			h.ErrLog.Write(w, r, apierr.BadRequest("you cannot disable your own account"))
			return
		}
	}

	upd := userstore.AdminUpdate{Name: req.Name, Role: req.Role, Status: req.Status}
	if req.ManagedResourceID != nil {
		upd.ManagedResourceID = parseManaged(*req.ManagedResourceID)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.users.UpdateByAdmin(ctx, id, upd)
	if err != nil {
		if ae := storeError(err); ae != nil {
			h.ErrLog.Write(w, r, ae)
			return
		}
		h.ErrLog.LogServerError(w, r, "update user failed", err)
		return
	}

	h.AuditLog.UserUpdated(ctx, r, actorID, id, changedFields(req))
	jsonutil.WriteJSON(w, http.StatusOK, u)
}

// HandleDelete handles DELETE /api/v1/admin/users/{id}. The user's
// favorites, ratings, reviews and likes go with them.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	id, ok := userID(w, r, h.ErrLog)
	if !ok {
		return
	}
	if id == actorID {
		h.ErrLog.Write(w, r, apierr.BadRequest("you cannot delete your own account here"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.users.Delete(ctx, id); err != nil {
		if ae := storeError(err); ae != nil {
			h.ErrLog.Write(w, r, ae)
			return
		}
		h.ErrLog.LogServerError(w, r, "delete user failed", err)
		return
	}

	h.AuditLog.UserDeleted(ctx, r, actorID, id)
	h.Log.Info("user deleted by admin", zap.String("user_id", id.Hex()), zap.String("actor_id", actorID.Hex()))
	jsonutil.NoContent(w)
}

func changedFields(req updateRequest) string {
	var out []string
	if req.Name != nil {
		out = append(out, "name")
	}
	if req.Role != nil {
		out = append(out, "role")
	}
	if req.Status != nil {
		out = append(out, "status")
	}
	if req.ManagedResourceID != nil {
		out = append(out, "managed_resource_id")
	}
	return strings.Join(out, ",")
}
