package resources_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/features/resources"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geocode"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/advocacy-resources/advo-sub000/internal/testutil"
	"go.uber.org/zap"
)

var (
	springfield = models.GeoPoint{Lat: 39.7817, Lng: -89.6501}
	nearby      = models.GeoPoint{Lat: 39.7990, Lng: -89.6440} // ~1.2 miles
	chicago     = models.GeoPoint{Lat: 41.8781, Lng: -87.6298} // ~180 miles
)

// fakeGeocoder answers from fixed tables and counts address lookups.
type fakeGeocoder struct {
	mu    sync.Mutex
	zips  map[string]models.GeoPoint
	addrs map[string]models.GeoPoint
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if p, ok := f.addrs[address]; ok {
		return p, nil
	}
	return models.GeoPoint{}, geocode.ErrNotFound
}

func (f *fakeGeocoder) GeocodeZip(ctx context.Context, zip string) (models.GeoPoint, error) {
	if p, ok := f.zips[zip]; ok {
		return p, nil
	}
	return models.GeoPoint{}, geocode.ErrNotFound
}

func newGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		zips:  map[string]models.GeoPoint{"62701": springfield},
		addrs: map[string]models.GeoPoint{"Springfield, IL, 62701": nearby},
	}
}

func newTestHandler(t *testing.T, g geocode.Geocoder, cfg resources.SearchConfig) (*resources.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := resources.NewHandler(db, g, cfg, uierrors.NewErrorLogger(logger), nil, logger)
	return h, testutil.NewFixtures(t, db)
}

type searchResult struct {
	Resources []struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Distance *float64 `json:"distance"`
	} `json:"resources"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func doSearch(t *testing.T, h *resources.Handler, target string) (*testutil.ResponseRecorder, searchResult) {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeSearch(rec, testutil.NewRequest("GET", target))
	var out searchResult
	if rec.Code == http.StatusOK {
		rec.DecodeJSON(t, &out)
	}
	return rec, out
}

func names(res searchResult) []string {
	out := make([]string, len(res.Resources))
	for i, r := range res.Resources {
		out[i] = r.Name
	}
	return out
}

func TestServeSearch_NoParamsNewestFirst(t *testing.T) {
	h, fixtures := newTestHandler(t, nil, resources.SearchConfig{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	fixtures.CreateResourceAt(ctx, "Oldest", base, nil)
	fixtures.CreateResourceAt(ctx, "Middle", base.Add(time.Minute), nil)
	fixtures.CreateResourceAt(ctx, "Newest", base.Add(2*time.Minute), nil)

	rec, res := doSearch(t, h, "/api/v1/resources")
	rec.AssertStatus(t, http.StatusOK)

	got := names(res)
	want := []string{"Newest", "Middle", "Oldest"}
	if len(got) != len(want) {
		t.Fatalf("names: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if res.Total != 3 || res.Page != 1 || res.Limit != 10 || res.TotalPages != 1 {
		t.Errorf("envelope: got %+v", res)
	}
}

func TestServeSearch_TextCategoryAndPaging(t *testing.T) {
	h, fixtures := newTestHandler(t, nil, resources.SearchConfig{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	fixtures.CreateResourceAt(ctx, "Legal Aid One", base, nil, models.CategoryLegal)
	fixtures.CreateResourceAt(ctx, "Legal Aid Two", base.Add(time.Minute), nil, models.CategoryLegal)
	fixtures.CreateResourceAt(ctx, "Food Pantry", base.Add(2*time.Minute), nil, models.CategoryFood)

	_, res := doSearch(t, h, "/api/v1/resources?q=legal+aid&limit=1&page=2")
	if res.Total != 2 || res.TotalPages != 2 {
		t.Errorf("total: got %d pages %d, want 2/2", res.Total, res.TotalPages)
	}
	if got := names(res); len(got) != 1 || got[0] != "Legal Aid One" {
		t.Errorf("page 2: got %v", got)
	}

	_, res = doSearch(t, h, "/api/v1/resources?category=food,housing")
	if got := names(res); len(got) != 1 || got[0] != "Food Pantry" {
		t.Errorf("category filter: got %v", got)
	}
}

func TestServeSearch_AtlasFallsBackToManual(t *testing.T) {
	// Test deployments have no Atlas Search index, so $search fails.
	h, fixtures := newTestHandler(t, nil, resources.SearchConfig{UseAtlas: true, Index: "missing_index"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateResource(ctx, "Housing Help")
	fixtures.CreateResource(ctx, "Something Else")

	rec, res := doSearch(t, h, "/api/v1/resources?q=housing")
	rec.AssertStatus(t, http.StatusOK)
	if got := names(res); len(got) != 1 || got[0] != "Housing Help" {
		t.Errorf("fallback results: got %v", got)
	}
}

func TestServeSearch_DistanceExcludesOutsideRadius(t *testing.T) {
	g := newGeocoder()
	h, fixtures := newTestHandler(t, g, resources.SearchConfig{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	fixtures.CreateResourceAt(ctx, "Stored Near", base, &nearby)
	fixtures.CreateResourceAt(ctx, "Far Away", base.Add(time.Minute), &chicago)
	// No stored location: placed by geocoding its address.
	geocoded := fixtures.CreateResourceAt(ctx, "Geocoded Near", base.Add(2*time.Minute), nil)

	rec, res := doSearch(t, h, "/api/v1/resources?zipCode=62701&distance=25")
	rec.AssertStatus(t, http.StatusOK)

	got := names(res)
	if len(got) != 2 || got[0] != "Geocoded Near" || got[1] != "Stored Near" {
		t.Fatalf("names: got %v, want [Geocoded Near Stored Near]", got)
	}
	for _, r := range res.Resources {
		if r.Distance == nil || *r.Distance > 25 {
			t.Errorf("%s: distance %v", r.Name, r.Distance)
		}
	}
	if res.Total != 2 {
		t.Errorf("total: got %d, want 2", res.Total)
	}
	if g.calls != 1 {
		t.Errorf("address lookups: got %d, want 1", g.calls)
	}

	// The geocoded point is remembered on the resource.
	stored, err := resourcestore.New(fixtures.DB()).GetByID(ctx, geocoded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Location == nil {
		t.Error("expected geocoded location to be stored")
	}
}

func TestServeSearch_Validation(t *testing.T) {
	h, _ := newTestHandler(t, newGeocoder(), resources.SearchConfig{})

	tests := []struct {
		name   string
		target string
		field  string
	}{
		{"distance without zip", "/api/v1/resources?distance=10", "distance"},
		{"distance too large", "/api/v1/resources?zipCode=62701&distance=1000", "distance"},
		{"distance not a number", "/api/v1/resources?zipCode=62701&distance=far", "distance"},
		{"short zip", "/api/v1/resources?zipCode=627", "zipCode"},
		{"limit too large", "/api/v1/resources?limit=500", "limit"},
		{"page zero", "/api/v1/resources?page=0", "page"},
		{"page overflow", "/api/v1/resources?page=1844674407370955162", "page"},
		{"page overflow with distance", "/api/v1/resources?zipCode=62701&distance=5&page=1844674407370955162", "page"},
		{"unknown category", "/api/v1/resources?category=spaceships", "category"},
		{"unlocatable zip", "/api/v1/resources?zipCode=99999&distance=5", "zipCode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doSearch(t, h, tt.target)
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, `"`+tt.field+`"`)
		})
	}
}

func TestCreateThenFetch_RoundTrip(t *testing.T) {
	h, _ := newTestHandler(t, newGeocoder(), resources.SearchConfig{})
	admin := testutil.AdminUser()

	body := map[string]any{
		"name":              "  Community   Clinic ",
		"description":       "Walk-in care\nNo insurance needed",
		"category":          []string{"Health", "mental_health"},
		"tags":              []string{"Free", "walk-in"},
		"services_provided": []string{"Primary care"},
		"contact":           map[string]string{"phone": "217-555-0100", "email": "Front@Clinic.org", "website": "https://clinic.org"},
		"address":           map[string]string{"city": "Springfield", "state": "IL", "zip_code": "62701"},
		"operating_hours":   map[string]any{"Monday": map[string]string{"open": "09:00", "close": "17:00"}},
	}
	req := testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/api/v1/admin/resources", body), admin)
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var created models.Resource
	rec.DecodeJSON(t, &created)

	rec = testutil.NewRecorder()
	h.ServeResource(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/api/v1/resources/"+created.ID.Hex()), "id", created.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	var fetched models.Resource
	rec.DecodeJSON(t, &fetched)

	if fetched.Name != "Community Clinic" || created.Name != fetched.Name {
		t.Errorf("name: created %q fetched %q", created.Name, fetched.Name)
	}
	if fetched.Description != "<p>Walk-in care<br>No insurance needed</p>" {
		t.Errorf("description: got %q", fetched.Description)
	}
	if len(fetched.Category) != 2 || fetched.Category[0] != "health" {
		t.Errorf("category: got %v", fetched.Category)
	}
	if fetched.Contact.Email != "front@clinic.org" {
		t.Errorf("contact email: got %q", fetched.Contact.Email)
	}
	if _, ok := fetched.OperatingHours["monday"]; !ok {
		t.Errorf("operating hours: got %v", fetched.OperatingHours)
	}
	if fetched.Location == nil || *fetched.Location != nearby {
		t.Errorf("location: got %v, want geocoded %v", fetched.Location, nearby)
	}
	if fetched.CreatedByID == nil || fetched.CreatedByID.Hex() != admin.ID {
		t.Errorf("created_by_id: got %v", fetched.CreatedByID)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	h, _ := newTestHandler(t, nil, resources.SearchConfig{})

	rec := testutil.NewRecorder()
	req := testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/", map[string]any{
		"category": []string{},
		"address":  map[string]string{"zip_code": "abc"},
		"image_url": "not a url",
	}), testutil.AdminUser())
	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	for _, field := range []string{`"name"`, `"category"`, `"address.zip_code"`, `"image_url"`} {
		rec.AssertContains(t, field)
	}
}

func TestHandleUpdateAndDelete(t *testing.T) {
	h, fixtures := newTestHandler(t, nil, resources.SearchConfig{})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	res := fixtures.CreateResource(ctx, "Before")
	id := res.ID.Hex()

	req := testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/", map[string]any{
		"name": "After", "category": []string{"legal"},
	}), testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.WithChiURLParam(req, "id", id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"After"`)

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", testutil.AdminUser()), "id", id))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = testutil.NewRecorder()
	h.ServeResource(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/"), "id", id))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", testutil.AdminUser()), "id", id))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeResource_BadID(t *testing.T) {
	h, _ := newTestHandler(t, nil, resources.SearchConfig{})

	rec := testutil.NewRecorder()
	h.ServeResource(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/"), "id", "not-an-id"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList_PrefixAndPaging(t *testing.T) {
	h, fixtures := newTestHandler(t, nil, resources.SearchConfig{})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateResource(ctx, "Alpha Clinic")
	fixtures.CreateResource(ctx, "Alpine Legal")
	fixtures.CreateResource(ctx, "Beta Housing")

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/?q=alp", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)

	var list struct {
		Items []models.Resource `json:"items"`
		Total int64             `json:"total"`
	}
	rec.DecodeJSON(t, &list)
	if list.Total != 2 || len(list.Items) != 2 {
		t.Errorf("prefix list: got total %d items %d, want 2", list.Total, len(list.Items))
	}
}

func TestBusinessRep_ManagedResource(t *testing.T) {
	h, fixtures := newTestHandler(t, nil, resources.SearchConfig{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mine := fixtures.CreateResource(ctx, "Rep Resource")
	rep := fixtures.CreateBusinessRep(ctx, "Rep", "rep@example.com", mine.ID)

	rec := testutil.NewRecorder()
	h.ServeManaged(rec, testutil.NewAuthenticatedRequest("GET", "/", testutil.FromModel(rep)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Rep Resource")

	req := testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/", map[string]any{
		"name": "Rep Resource Renamed", "category": []string{"housing"},
	}), testutil.FromModel(rep))
	rec = testutil.NewRecorder()
	h.HandleUpdateManaged(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Rep Resource Renamed")

	// A representative with no assignment is refused.
	unassigned := testutil.RegularUser()
	unassigned.Role = models.RoleBusinessRep
	rec = testutil.NewRecorder()
	h.HandleUpdateManaged(rec, testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/", map[string]any{
		"name": "x", "category": []string{"housing"},
	}), unassigned))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	h, _ := newTestHandler(t, nil, resources.SearchConfig{})
	sm := testutil.NewSessionManager(t)

	rec := testutil.NewRecorder()
	resources.AdminRoutes(h, sm).ServeHTTP(rec, testutil.NewRequest("GET", "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	resources.AdminRoutes(h, sm).ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/", testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusForbidden)
}
