// internal/app/features/systemusers/list.go
package systemusers

import (
	"context"
	"net/http"

	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/paging"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /api/v1/admin/users.
//
// Query params: q (name or email substring), role, status, page, limit.
// Results are ordered by name, or by email when q looks like an address.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	f := userstore.ListFilter{
		Query:  normalize.QueryParam(query.Get(r, "q")),
		Role:   normalize.Role(query.Get(r, "role")),
		Status: normalize.Status(query.Get(r, "status")),
	}
	fields := map[string]string{}
	switch f.Role {
	case "", models.RoleUser, models.RoleBusinessRep, models.RoleAdmin:
	default:
		fields["role"] = userstore.ErrBadRole.Error()
	}
	switch f.Status {
	case "", models.StatusActive, models.StatusDisabled:
	default:
		fields["status"] = userstore.ErrBadStatus.Error()
	}
	if len(fields) > 0 {
		h.ErrLog.Write(w, r, apierr.Invalid(fields))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, total, err := h.users.List(ctx, f, pg.Skip(), pg.Limit64())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users failed", err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, paging.NewList(rows, total, pg))
}
