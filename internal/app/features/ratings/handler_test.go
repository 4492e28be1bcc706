package ratings_test

import (
	"net/http"
	"testing"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/features/ratings"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/advocacy-resources/advo-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type summary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
	Mine    *int    `json:"mine"`
}

func newTestHandler(t *testing.T) (*ratings.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return ratings.NewHandler(db, uierrors.NewErrorLogger(logger), logger), testutil.NewFixtures(t, db)
}

func rate(t *testing.T, h *ratings.Handler, u testutil.TestUser, resID string, score any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/", map[string]any{"score": score}), u)
	rec := testutil.NewRecorder()
	h.HandleRate(rec, testutil.WithChiURLParam(req, "id", resID))
	return rec
}

func TestHandleRate_AggregatesAcrossUsers(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Clinic")
	a := testutil.FromModel(fixtures.CreateUser(ctx, "A", "a@example.com", models.RoleUser))
	b := testutil.FromModel(fixtures.CreateUser(ctx, "B", "b@example.com", models.RoleUser))

	rate(t, h, a, res.ID.Hex(), 5).AssertStatus(t, http.StatusOK)
	rec := rate(t, h, b, res.ID.Hex(), 2)
	rec.AssertStatus(t, http.StatusOK)

	var got summary
	rec.DecodeJSON(t, &got)
	if got.Count != 2 || got.Average != 3.5 {
		t.Errorf("summary: got count=%d avg=%v, want 2 and 3.5", got.Count, got.Average)
	}

	// Re-rating replaces the earlier score.
	rec = rate(t, h, a, res.ID.Hex(), 4)
	rec.DecodeJSON(t, &got)
	if got.Count != 2 || got.Average != 3 {
		t.Errorf("after re-rate: got count=%d avg=%v, want 2 and 3", got.Count, got.Average)
	}

	rec = testutil.NewRecorder()
	h.ServeSummary(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/", b), "id", res.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &got)
	if got.Mine == nil || *got.Mine != 2 {
		t.Errorf("mine: got %v, want 2", got.Mine)
	}

	rec = testutil.NewRecorder()
	h.HandleRemove(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", b), "id", res.ID.Hex()))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = testutil.NewRecorder()
	h.ServeSummary(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/"), "id", res.ID.Hex()))
	rec.DecodeJSON(t, &got)
	if got.Count != 1 || got.Average != 4 || got.Mine != nil {
		t.Errorf("after remove: got %+v", got)
	}
}

func TestHandleRate_Validation(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Clinic")
	u := testutil.RegularUser()

	tests := []struct {
		name  string
		score any
	}{
		{"zero", 0},
		{"too high", 6},
		{"missing", nil},
		{"not a number", "five"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate(t, h, u, res.ID.Hex(), tt.score).AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleRate_UnknownResource(t *testing.T) {
	h, _ := newTestHandler(t)
	rate(t, h, testutil.RegularUser(), primitive.NewObjectID().Hex(), 3).AssertStatus(t, http.StatusNotFound)
}

func TestHandleRemove_NoRating(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Clinic")
	rec := testutil.NewRecorder()
	h.HandleRemove(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", testutil.RegularUser()), "id", res.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestRoutes_WriteRequiresSession(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := testutil.NewRecorder()
	ratings.Routes(h, testutil.NewSessionManager(t)).ServeHTTP(rec, testutil.NewRequest("DELETE", "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
