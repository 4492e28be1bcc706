// internal/app/features/favorites/handler.go
package favorites

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	favoritestore "github.com/advocacy-resources/advo-sub000/internal/app/store/favorites"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a signed-in user's favorites.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	store *favoritestore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
		store:  favoritestore.New(db),
	}
}

var errResourceNotFound = apierr.NotFound("resource not found")

type favoriteStatus struct {
	ResourceID string `json:"resource_id"`
	Favorite   bool   `json:"favorite"`
}

// target returns the signed-in user and the {id} resource. ok is false
// after an error response has been written.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (userID, resourceID primitive.ObjectID, ok bool) {
	_, _, userID, signedIn := authz.UserCtx(r)
	if !signedIn {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return userID, resourceID, false
	}
	resourceID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, errResourceNotFound)
		return userID, resourceID, false
	}
	return userID, resourceID, true
}

// HandleAdd handles POST /api/v1/resources/{id}/favorite. A new favorite
// answers 201; repeating the call answers 200.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, resourceID, ok := h.target(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	fav, created, err := h.store.Add(ctx, userID, resourceID)
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errResourceNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add favorite failed", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	jsonutil.WriteJSON(w, status, fav)
}

// HandleRemove handles DELETE /api/v1/resources/{id}/favorite. Removing a
// favorite that does not exist is not an error.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, resourceID, ok := h.target(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.store.Remove(ctx, userID, resourceID); err != nil && !errors.Is(err, favoritestore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "remove favorite failed", err)
		return
	}
	jsonutil.NoContent(w)
}

// ServeStatus handles GET /api/v1/resources/{id}/favorite.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	userID, resourceID, ok := h.target(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	fav, err := h.store.IsFavorite(ctx, userID, resourceID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load favorite failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, favoriteStatus{ResourceID: resourceID.Hex(), Favorite: fav})
}

// ServeList handles GET /api/v1/users/me/favorites and returns the
// favorited resources, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.store.ListResourcesForUser(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list favorites failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"resources": rows, "total": len(rows)})
}
