// internal/app/features/resources/view.go
package resources

import (
	"context"
	"errors"
	"net/http"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeResource handles GET /api/v1/resources/{id}.
func (h *Handler) ServeResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	h.serveByID(w, r, id)
}

func (h *Handler) serveByID(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.store.GetByID(ctx, id)
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load resource failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, res)
}
