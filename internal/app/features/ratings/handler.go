// internal/app/features/ratings/handler.go
package ratings

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	ratingstore "github.com/advocacy-resources/advo-sub000/internal/app/store/ratings"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/validate"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	store *ratingstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
		store:  ratingstore.New(db),
	}
}

var errResourceNotFound = apierr.NotFound("resource not found")

type rateRequest struct {
	Score *int `json:"score" validate:"required,min=1,max=5"`
}

func resourceID(w http.ResponseWriter, r *http.Request, el *uierrors.ErrorLogger) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		el.Write(w, r, errResourceNotFound)
		return id, false
	}
	return id, true
}

// ServeSummary handles GET /api/v1/resources/{id}/rating. The caller's own
// score is included when signed in.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	resID, ok := resourceID(w, r, h.ErrLog)
	if !ok {
		return
	}

	var mine *primitive.ObjectID
	if _, _, uid, signedIn := authz.UserCtx(r); signedIn {
		mine = &uid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sum, err := h.store.Summary(ctx, resID, mine)
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errResourceNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load rating summary failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, sum)
}

// HandleRate handles PUT /api/v1/resources/{id}/rating. Rating again
// replaces the caller's previous score.
func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	resID, ok := resourceID(w, r, h.ErrLog)
	if !ok {
		return
	}

	var req rateRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sum, err := h.store.Upsert(ctx, userID, resID, *req.Score)
	switch {
	case errors.Is(err, ratingstore.ErrBadScore):
		h.ErrLog.Write(w, r, apierr.Invalid(map[string]string{"score": err.Error()}))
		return
	case errors.Is(err, resourcestore.ErrNotFound):
		h.ErrLog.Write(w, r, errResourceNotFound)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "save rating failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, sum)
}

// HandleRemove handles DELETE /api/v1/resources/{id}/rating.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	resID, ok := resourceID(w, r, h.ErrLog)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.store.Remove(ctx, userID, resID); err != nil {
		if errors.Is(err, ratingstore.ErrNotFound) {
			h.ErrLog.Write(w, r, apierr.NotFound("rating not found"))
			return
		}
		h.ErrLog.LogServerError(w, r, "remove rating failed", err)
		return
	}
	jsonutil.NoContent(w)
}
