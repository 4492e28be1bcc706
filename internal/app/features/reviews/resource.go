// internal/app/features/reviews/resource.go
package reviews

import (
	"context"
	"errors"
	"net/http"
	"strings"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/htmlsanitize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/paging"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/validate"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// reviewResult adds the caller's like state; Liked is omitted for visitors.
type reviewResult struct {
	models.Review
	Liked *bool `json:"liked,omitempty"`
}

type createRequest struct {
	Body   string `json:"body" validate:"required,max=2000"`
	Rating *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// ServeList handles GET /api/v1/resources/{id}/reviews, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	resID, ok := h.pathID(w, r, errResourceNotFound)
	if !ok {
		return
	}
	pg, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	exists, err := h.resources.Exists(ctx, resID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load resource failed", err)
		return
	}
	if !exists {
		h.ErrLog.Write(w, r, errResourceNotFound)
		return
	}

	rows, total, err := h.reviews.ListForResource(ctx, resID, pg.Skip(), pg.Limit64())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list reviews failed", err)
		return
	}

	out := make([]reviewResult, len(rows))
	for i, rv := range rows {
		out[i] = reviewResult{Review: rv}
	}

	if _, _, uid, signedIn := authz.UserCtx(r); signedIn && len(rows) > 0 {
		ids := make([]primitive.ObjectID, len(rows))
		for i, rv := range rows {
			ids[i] = rv.ID
		}
		liked, err := h.reviews.LikedBy(ctx, uid, ids)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load review likes failed", err)
			return
		}
		for i := range out {
			l := liked[out[i].ID]
			out[i].Liked = &l
		}
	}

	jsonutil.WriteJSON(w, http.StatusOK, paging.NewList(out, total, pg))
}

// HandleCreate handles POST /api/v1/resources/{id}/reviews. Markup is
// stripped from the body; a body that is empty afterwards is rejected.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, name, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apierr.Unauthorized(""))
		return
	}
	resID, ok := h.pathID(w, r, errResourceNotFound)
	if !ok {
		return
	}

	var req createRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	req.Body = strings.TrimSpace(htmlsanitize.StripTags(req.Body))
	if err := validate.Struct(req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rv, err := h.reviews.Create(ctx, models.Review{
		ResourceID: resID,
		UserID:     userID,
		UserName:   name,
		Body:       req.Body,
		Rating:     req.Rating,
	})
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errResourceNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create review failed", err)
		return
	}

	h.Log.Info("review created",
		zapID("review_id", rv.ID), zapID("resource_id", resID), zapID("user_id", userID))
	jsonutil.WriteJSON(w, http.StatusCreated, rv)
}
