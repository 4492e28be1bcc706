package reviews_test

import (
	"net/http"
	"testing"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/features/reviews"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/advocacy-resources/advo-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type reviewJSON struct {
	ID        string `json:"id"`
	UserName  string `json:"user_name"`
	Body      string `json:"body"`
	Rating    *int   `json:"rating"`
	LikeCount int64  `json:"like_count"`
	Liked     *bool  `json:"liked"`
}

type reviewList struct {
	Items []reviewJSON `json:"items"`
	Total int64        `json:"total"`
}

func newTestHandler(t *testing.T) (*reviews.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return reviews.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), testutil.NewFixtures(t, db)
}

func post(t *testing.T, h *reviews.Handler, u testutil.TestUser, resID string, body map[string]any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/", body), u)
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, testutil.WithChiURLParam(req, "id", resID))
	return rec
}

func list(t *testing.T, h *reviews.Handler, req *http.Request, resID string) reviewList {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.WithChiURLParam(req, "id", resID))
	rec.AssertStatus(t, http.StatusOK)
	var out reviewList
	rec.DecodeJSON(t, &out)
	return out
}

func TestCreateAndList(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Food Bank")
	author := testutil.FromModel(fixtures.CreateUser(ctx, "Rae", "rae@example.com", models.RoleUser))

	rec := post(t, h, author, res.ID.Hex(), map[string]any{
		"body":   "<script>alert(1)</script>Friendly <b>staff</b>",
		"rating": 4,
	})
	rec.AssertStatus(t, http.StatusCreated)
	var created reviewJSON
	rec.DecodeJSON(t, &created)
	if created.UserName != "Rae" {
		t.Errorf("user_name: got %q, want Rae", created.UserName)
	}
	if created.Body != "Friendly staff" {
		t.Errorf("body: got %q, want markup stripped", created.Body)
	}
	if created.Rating == nil || *created.Rating != 4 {
		t.Errorf("rating: got %v, want 4", created.Rating)
	}

	post(t, h, author, res.ID.Hex(), map[string]any{"body": "Second visit"}).AssertStatus(t, http.StatusCreated)

	visitor := list(t, h, testutil.NewRequest("GET", "/"), res.ID.Hex())
	if visitor.Total != 2 || len(visitor.Items) != 2 {
		t.Fatalf("list: got total=%d items=%d, want 2", visitor.Total, len(visitor.Items))
	}
	if visitor.Items[0].Body != "Second visit" {
		t.Errorf("order: got %q first, want newest first", visitor.Items[0].Body)
	}
	if visitor.Items[0].Liked != nil {
		t.Error("visitors should not get a liked flag")
	}

	page := list(t, h, testutil.NewRequest("GET", "/?page=2&limit=1"), res.ID.Hex())
	if len(page.Items) != 1 || page.Items[0].ID != created.ID {
		t.Errorf("page 2: got %+v", page.Items)
	}
}

func TestCreate_Validation(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Food Bank")
	u := testutil.RegularUser()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty body", map[string]any{"body": ""}},
		{"markup only", map[string]any{"body": "<p></p>"}},
		{"rating too high", map[string]any{"body": "ok", "rating": 9}},
		{"rating zero", map[string]any{"body": "ok", "rating": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post(t, h, u, res.ID.Hex(), tt.body).AssertStatus(t, http.StatusBadRequest)
		})
	}

	post(t, h, u, primitive.NewObjectID().Hex(), map[string]any{"body": "ok"}).AssertStatus(t, http.StatusNotFound)
}

func TestLikeUnlike(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Food Bank")
	author := testutil.FromModel(fixtures.CreateUser(ctx, "Rae", "rae@example.com", models.RoleUser))
	fan := testutil.FromModel(fixtures.CreateUser(ctx, "Fan", "fan@example.com", models.RoleUser))

	var rv reviewJSON
	post(t, h, author, res.ID.Hex(), map[string]any{"body": "Helpful"}).DecodeJSON(t, &rv)

	like := func(method string) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest(method, "/", fan), "id", rv.ID)
		if method == "POST" {
			h.HandleLike(rec, req)
		} else {
			h.HandleUnlike(rec, req)
		}
		return rec
	}

	rec := like("POST")
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"like_count":1`)

	like("POST").AssertStatus(t, http.StatusConflict)

	got := list(t, h, testutil.NewAuthenticatedRequest("GET", "/", fan), res.ID.Hex())
	if got.Items[0].Liked == nil || !*got.Items[0].Liked || got.Items[0].LikeCount != 1 {
		t.Errorf("after like: got %+v", got.Items[0])
	}

	rec = like("DELETE")
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"like_count":0`)

	like("DELETE").AssertStatus(t, http.StatusNotFound)
}

func TestDelete_Permissions(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Food Bank")
	author := testutil.FromModel(fixtures.CreateUser(ctx, "Rae", "rae@example.com", models.RoleUser))
	other := testutil.FromModel(fixtures.CreateUser(ctx, "Other", "other@example.com", models.RoleUser))
	admin := testutil.FromModel(fixtures.CreateAdmin(ctx, "Admin", "admin@example.com"))

	var first, second reviewJSON
	post(t, h, author, res.ID.Hex(), map[string]any{"body": "one"}).DecodeJSON(t, &first)
	post(t, h, author, res.ID.Hex(), map[string]any{"body": "two"}).DecodeJSON(t, &second)

	del := func(u testutil.TestUser, id string) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.HandleDelete(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", u), "id", id))
		return rec
	}

	del(other, first.ID).AssertStatus(t, http.StatusForbidden)
	del(author, first.ID).AssertStatus(t, http.StatusNoContent)
	del(admin, second.ID).AssertStatus(t, http.StatusNoContent)
	del(author, first.ID).AssertStatus(t, http.StatusNotFound)

	if got := list(t, h, testutil.NewRequest("GET", "/"), res.ID.Hex()); got.Total != 0 {
		t.Errorf("total after deletes: got %d, want 0", got.Total)
	}
}

func TestServeList_UnknownResource(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/"), "id", primitive.NewObjectID().Hex()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	h, _ := newTestHandler(t)
	sm := testutil.NewSessionManager(t)

	rec := testutil.NewRecorder()
	reviews.Routes(h, sm).ServeHTTP(rec, testutil.NewRequest("POST", "/"+primitive.NewObjectID().Hex()+"/like"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	reviews.ResourceRoutes(h, sm).ServeHTTP(rec, testutil.NewJSONRequest(t, "POST", "/", map[string]any{"body": "x"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
