// internal/app/features/resources/search.go
package resources

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geo"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geocode"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/metrics"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/paging"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/search"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// Distance bounds, in miles.
const (
	MinDistance = 1
	MaxDistance = 500
)

type searchParams struct {
	Filter   search.Filter
	ZipCode  string
	Distance float64 // 0 = no radius
	Page     paging.Params
}

func (p searchParams) byDistance() bool { return p.Distance > 0 }

// resourceResult is one search hit. Distance is set on radius searches only.
type resourceResult struct {
	models.Resource
	Distance *float64 `json:"distance,omitempty"`
}

type searchResponse struct {
	Resources  []resourceResult `json:"resources"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// parseSearch reads and validates the search query string. Every problem
// is reported at once as a field map.
func parseSearch(r *http.Request) (searchParams, error) {
	var p searchParams
	fields := map[string]string{}

	page, err := paging.Parse(r)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			for k, v := range ae.Fields {
				fields[k] = v
			}
		}
	}
	p.Page = page

	p.Filter.Query = query.Search(r, "q")
	p.Filter.Tags = normalize.CSV(query.Get(r, "tags"))
	p.Filter.Categories = normalize.CSV(query.Get(r, "category"))
	for _, c := range p.Filter.Categories {
		if !models.IsValidCategory(c) {
			fields["category"] = "unknown category " + strconv.Quote(c)
			break
		}
	}

	if zip := normalize.QueryParam(query.Get(r, "zipCode")); zip != "" {
		if len(zip) != 5 || !isDigits(zip) {
			fields["zipCode"] = "must be a 5-digit zip code"
		}
		p.ZipCode = zip
	}

	if s := normalize.QueryParam(query.Get(r, "distance")); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil || math.IsNaN(d) || math.IsInf(d, 0):
			fields["distance"] = "must be a number"
		case d < MinDistance || d > MaxDistance:
			fields["distance"] = "must be between " + strconv.Itoa(MinDistance) + " and " + strconv.Itoa(MaxDistance) + " miles"
		case p.ZipCode == "":
			fields["distance"] = "requires zipCode"
		default:
			p.Distance = d
		}
	}

	// A zip code on its own narrows to resources in that zip; with a
	// distance it is the center of the radius instead.
	if p.ZipCode != "" && p.Distance == 0 {
		p.Filter.ZipCode = p.ZipCode
	}

	if len(fields) > 0 {
		return p, apierr.Invalid(fields)
	}
	return p, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ServeSearch handles GET /api/v1/resources.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearch(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	if p.byDistance() {
		h.serveDistanceSearch(w, r, p)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, total, path, err := h.find(ctx, p.Filter, p.Page.Skip(), p.Page.Limit64())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resource search failed", err)
		return
	}
	metrics.SearchTotal.WithLabelValues(path).Inc()

	out := make([]resourceResult, len(rows))
	for i := range rows {
		out[i] = resourceResult{Resource: rows[i]}
	}
	h.writePage(w, out, total, p.Page)
}

// serveDistanceSearch loads every match newest first, places each on the
// map (stored location, else its geocoded address) and keeps those inside
// the radius. Paging happens in memory after the distance filter.
func (h *Handler) serveDistanceSearch(w http.ResponseWriter, r *http.Request, p searchParams) {
	if h.Geocoder == nil {
		h.ErrLog.Write(w, r, apierr.Unavailable("distance search is not available", nil))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "distance search")
	defer cancel()

	center, err := h.Geocoder.GeocodeZip(ctx, p.ZipCode)
	if errors.Is(err, geocode.ErrNotFound) {
		h.ErrLog.Write(w, r, apierr.Invalid(map[string]string{"zipCode": "could not be located"}))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "geocode search zip failed", err)
		return
	}

	rows, _, _, err := h.find(ctx, p.Filter, 0, 0)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resource search failed", err)
		return
	}

	inputs := make([]geocode.Input, len(rows))
	for i, res := range rows {
		inputs[i] = geocode.Input{Location: res.Location, Address: res.Address.Line()}
	}
	points, err := geocode.Resolve(ctx, h.Geocoder, inputs, geocode.BatchSize)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve resource locations failed", err)
		return
	}

	matched := []resourceResult{}
	for i, pt := range points {
		if pt == nil {
			continue
		}
		if rows[i].Location == nil {
			h.rememberLocation(ctx, rows[i], *pt)
		}
		d := geo.DistanceMiles(center, *pt)
		if d > p.Distance {
			continue
		}
		d = math.Round(d*100) / 100
		matched = append(matched, resourceResult{Resource: rows[i], Distance: &d})
	}
	metrics.SearchTotal.WithLabelValues(metrics.PathDistance).Inc()

	h.writePage(w, paging.Slice(matched, p.Page), int64(len(matched)), p.Page)
}

// rememberLocation stores a point geocoded during search so later searches
// skip the lookup. Failures are logged and otherwise ignored.
func (h *Handler) rememberLocation(ctx context.Context, res models.Resource, pt models.GeoPoint) {
	if !geo.Valid(pt) {
		return
	}
	if err := h.store.SetLocation(ctx, res.ID, &pt); err != nil {
		h.Log.Warn("store geocoded location failed",
			zap.String("resource_id", res.ID.Hex()), zap.Error(err))
	}
}

// find runs f, preferring Atlas Search for free-text queries when enabled
// and falling back to the manual filter on any Atlas error. Results are
// newest first. It returns the path that served the query.
func (h *Handler) find(ctx context.Context, f search.Filter, skip, limit int64) ([]models.Resource, int64, string, error) {
	if f.HasText() && h.Search.UseAtlas {
		rows, total, err := h.store.AtlasSearch(ctx, h.Search.Index, f, true, skip, limit)
		if err == nil {
			return rows, total, metrics.PathAtlas, nil
		}
		if ctx.Err() != nil {
			return nil, 0, "", err
		}
		metrics.SearchFallbackTotal.Inc()
		h.Log.Warn("atlas search failed; falling back to manual query",
			zap.String("index", h.Search.Index), zap.Error(err))
	}
	rows, total, err := h.store.ManualSearch(ctx, f, skip, limit)
	return rows, total, metrics.PathManual, err
}

func (h *Handler) writePage(w http.ResponseWriter, rows []resourceResult, total int64, p paging.Params) {
	if rows == nil {
		rows = []resourceResult{}
	}
	jsonutil.WriteJSON(w, http.StatusOK, searchResponse{
		Resources:  rows,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: paging.TotalPages(total, p.Limit),
	})
}
