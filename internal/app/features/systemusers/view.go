// internal/app/features/systemusers/view.go
package systemusers

import (
	"context"
	"net/http"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
)

// ServeView handles GET /api/v1/admin/users/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.ErrLog)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		if ae := storeError(err); ae != nil {
			h.ErrLog.Write(w, r, ae)
			return
		}
		h.ErrLog.LogServerError(w, r, "load user failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, u)
}
