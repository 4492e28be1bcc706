package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		Email:      email,
		Name:       name,
		NameCI:     text.Fold(name),
		AuthMethod: "password",
		Role:       role,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateBusinessRep creates a business representative managing resourceID.
func (f *Fixtures) CreateBusinessRep(ctx context.Context, name, email string, resourceID primitive.ObjectID) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, name, email, models.RoleBusinessRep)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID,
		bson.M{"$set": bson.M{"managed_resource_id": resourceID}}); err != nil {
		f.t.Fatalf("failed to assign managed resource: %v", err)
	}
	u.ManagedResourceID = &resourceID
	return u
}

// CreateDisabledUser creates a test user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, name, email, models.RoleUser)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID,
		bson.M{"$set": bson.M{"status": models.StatusDisabled}}); err != nil {
		f.t.Fatalf("failed to disable test user: %v", err)
	}
	u.Status = models.StatusDisabled
	return u
}

// CreateResource inserts a resource in the given categories with created_at
// set to now. Use CreateResourceAt to control ordering.
func (f *Fixtures) CreateResource(ctx context.Context, name string, categories ...string) models.Resource {
	f.t.Helper()
	return f.CreateResourceAt(ctx, name, time.Now().UTC(), nil, categories...)
}

// CreateResourceAt inserts a resource with an explicit creation time and an
// optional stored location.
func (f *Fixtures) CreateResourceAt(ctx context.Context, name string, createdAt time.Time, loc *models.GeoPoint, categories ...string) models.Resource {
	f.t.Helper()

	if len(categories) == 0 {
		categories = []string{models.CategoryHealth}
	}
	res := models.Resource{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "<p>" + name + " description</p>",
		Category:    categories,
		Tags:        []string{"test"},
		Address:     models.Address{City: "Springfield", State: "IL", ZipCode: "62701"},
		Location:    loc,
		CreatedAt:   createdAt,
	}
	if _, err := f.db.Collection("resources").InsertOne(ctx, res); err != nil {
		f.t.Fatalf("failed to create test resource: %v", err)
	}
	return res
}
