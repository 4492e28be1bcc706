// internal/app/features/resources/admin.go
package resources

import (
	"context"
	"errors"
	"net/http"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/paging"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/search"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/validate"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ServeList handles GET /api/v1/admin/resources. q is a name prefix match
// on name_ci; results are newest first.
// Authorization: RequireRole("admin") middleware in routes.go ensures only admins reach this handler.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	filter := bson.M{}
	if lo, hi := text.PrefixRange(query.Search(r, "q")); lo != "" {
		filter["name_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	total, err := h.store.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count resources failed", err)
		return
	}
	rows, err := h.store.Find(ctx, filter, options.Find().
		SetSort(search.CreatedDesc).
		SetSkip(p.Skip()).
		SetLimit(p.Limit64()))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list resources failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, paging.NewList(rows, total, p))
}

// decodeInput reads, normalizes and validates a resourceInput body.
func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (resourceInput, bool) {
	var in resourceInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return in, false
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return in, false
	}
	return in, true
}

// HandleCreate handles POST /api/v1/admin/resources.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := in.toModel()
	res.CreatedByID = &actorID
	res.UpdatedByID = &actorID
	res.Location = h.locate(ctx, res.Address, nil)

	res, err := h.store.Create(ctx, res)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create resource failed", err)
		return
	}

	h.AuditLog.ResourceCreated(ctx, r, actorID, res.ID, res.Name)
	jsonutil.WriteJSON(w, http.StatusCreated, res)
}

// HandleUpdate handles PUT /api/v1/admin/resources/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	h.update(w, r, id)
}

// update replaces the editable fields of resource id with the request body.
// Shared by the admin and business representative endpoints.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.store.GetByID(ctx, id)
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load resource failed", err)
		return
	}

	mut := in.toModel()
	mut.UpdatedByID = &actorID
	mut.Location = h.locate(ctx, mut.Address, &cur)

	res, err := h.store.Update(ctx, id, mut)
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update resource failed", err)
		return
	}

	h.AuditLog.ResourceUpdated(ctx, r, actorID, res.ID, res.Name)
	jsonutil.WriteJSON(w, http.StatusOK, res)
}

// HandleDelete handles DELETE /api/v1/admin/resources/{id}. Favorites,
// ratings, reviews and review likes for the resource go with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete resource cascade")
	defer cancel()

	err := h.store.Delete(ctx, id)
	if errors.Is(err, resourcestore.ErrNotFound) {
		h.ErrLog.Write(w, r, errNotFound)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete resource failed", err)
		return
	}

	h.AuditLog.ResourceDeleted(ctx, r, actorID, id)
	jsonutil.NoContent(w)
}

// locate returns the map position for addr. An unchanged address keeps the
// previous position; otherwise a zip code triggers a geocode. Failures are
// logged and leave the resource without a location.
func (h *Handler) locate(ctx context.Context, addr models.Address, prev *models.Resource) *models.GeoPoint {
	if prev != nil && prev.Location != nil && prev.Address == addr {
		return prev.Location
	}
	if addr.ZipCode == "" || h.Geocoder == nil {
		return nil
	}
	pt, err := h.Geocoder.Geocode(ctx, addr.Line())
	if err != nil {
		h.Log.Warn("geocode resource address failed",
			zap.String("address", addr.Line()), zap.Error(err))
		return nil
	}
	return &pt
}
