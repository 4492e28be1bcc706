// internal/app/features/reviews/review.go
package reviews

import (
	"context"
	"errors"
	"net/http"

	reviewstore "github.com/advocacy-resources/advo-sub000/internal/app/store/reviews"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func zapID(key string, id primitive.ObjectID) zap.Field {
	return zap.String(key, id.Hex())
}

type likeResponse struct {
	ReviewID  string `json:"review_id"`
	LikeCount int64  `json:"like_count"`
	Liked     bool   `json:"liked"`
}

// HandleDelete handles DELETE /api/v1/reviews/{id}. Authors may delete
// their own reviews; admins may delete any.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	id, ok := h.pathID(w, r, errReviewNotFound)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rv, err := h.reviews.GetByID(ctx, id)
	if errors.Is(err, reviewstore.ErrNotFound) {
		h.ErrLog.Write(w, r, errReviewNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load review failed", err)
		return
	}

	own := rv.UserID == userID
	if !own && !authz.IsAdmin(r) {
		h.ErrLog.Write(w, r, apierr.Forbidden("you can only delete your own reviews"))
		return
	}

	if err := h.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, reviewstore.ErrNotFound) {
			h.ErrLog.Write(w, r, errReviewNotFound)
			return
		}
		h.ErrLog.LogServerError(w, r, "delete review failed", err)
		return
	}
	if !own {
		h.AuditLog.ReviewRemoved(ctx, r, userID, rv.UserID, rv.ResourceID)
	}
	jsonutil.NoContent(w)
}

// HandleLike handles POST /api/v1/reviews/{id}/like. A second like by the
// same user is a 409.
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	id, ok := h.pathID(w, r, errReviewNotFound)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	count, err := h.reviews.Like(ctx, userID, id)
	switch {
	case errors.Is(err, reviewstore.ErrNotFound):
		h.ErrLog.Write(w, r, errReviewNotFound)
		return
	case errors.Is(err, reviewstore.ErrAlreadyLiked):
		h.ErrLog.Write(w, r, apierr.Conflict("review already liked"))
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "like review failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, likeResponse{ReviewID: id.Hex(), LikeCount: count, Liked: true})
}

// HandleUnlike handles DELETE /api/v1/reviews/{id}/like.
func (h *Handler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	id, ok := h.pathID(w, r, errReviewNotFound)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	count, err := h.reviews.Unlike(ctx, userID, id)
	if errors.Is(err, reviewstore.ErrNotFound) {
		h.ErrLog.Write(w, r, apierr.NotFound("like not found"))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "unlike review failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, likeResponse{ReviewID: id.Hex(), LikeCount: count})
}
