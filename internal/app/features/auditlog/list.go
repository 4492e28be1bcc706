// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	"github.com/advocacy-resources/advo-sub000/internal/app/store/audit"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/paging"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /api/v1/admin/audit.
//
// Query params: category, event_type, user_id, start_date and end_date
// (YYYY-MM-DD, end date inclusive), page, limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	category := strings.ToLower(query.Get(r, "category"))
	eventType := strings.ToLower(query.Get(r, "event_type"))
	fields := map[string]string{}

	known := eventTypesForCategory(category)
	if known == nil {
		fields["category"] = `must be "auth" or "admin"`
	} else if eventType != "" && !contains(known, eventType) {
		fields["event_type"] = "unknown event type"
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pg.Limit64(),
		Offset:    pg.Skip(),
	}

	if s := query.Get(r, "user_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			fields["user_id"] = "must be a valid id"
		} else {
			filter.UserID = &id
		}
	}
	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			fields["start_date"] = "must be YYYY-MM-DD"
		} else {
			filter.StartTime = &t
		}
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			fields["end_date"] = "must be YYYY-MM-DD"
		} else {
			// End of day
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndTime = &end
		}
	}
	if len(fields) > 0 {
		h.ErrLog.Write(w, r, apierr.Invalid(fields))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err)
		return
	}
	total, err := h.events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events failed", err)
		return
	}

	// Collect unique user IDs for name resolution
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) > 0 {
		users, err := h.users.GetByIDs(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			item.UserID = e.UserID.Hex()
			item.UserName = names[*e.UserID]
		}
		if e.ResourceID != nil {
			item.ResourceID = e.ResourceID.Hex()
		}
		items = append(items, item)
	}

	jsonutil.WriteJSON(w, http.StatusOK, paging.NewList(items, total, pg))
}
