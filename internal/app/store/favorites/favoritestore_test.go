package favoritestore_test

import (
	"errors"
	"testing"
	"time"

	favoritestore "github.com/advocacy-resources/advo-sub000/internal/app/store/favorites"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/advocacy-resources/advo-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AddIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := favoritestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Pantry", models.CategoryFood)
	userID := primitive.NewObjectID()

	first, created, err := store.Add(ctx, userID, res.ID)
	if err != nil || !created {
		t.Fatalf("first Add: created=%v err=%v", created, err)
	}
	second, created, err := store.Add(ctx, userID, res.ID)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if created {
		t.Error("second Add should not create")
	}
	if second.ID != first.ID {
		t.Error("second Add should return the existing favorite")
	}

	got, _ := resourcestore.New(db).GetByID(ctx, res.ID)
	if got.FavoriteCount != 1 {
		t.Errorf("favorite_count: got %d, want 1", got.FavoriteCount)
	}
}

func TestStore_Add_MissingResource(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := favoritestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _, err := store.Add(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, resourcestore.ErrNotFound) {
		t.Errorf("expected resource ErrNotFound, got %v", err)
	}
}

func TestStore_Remove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := favoritestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Pantry")
	userID := primitive.NewObjectID()
	if _, _, err := store.Add(ctx, userID, res.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := store.Remove(ctx, userID, res.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := store.IsFavorite(ctx, userID, res.ID); ok {
		t.Error("favorite should be gone")
	}
	got, _ := resourcestore.New(db).GetByID(ctx, res.ID)
	if got.FavoriteCount != 0 {
		t.Errorf("favorite_count: got %d, want 0", got.FavoriteCount)
	}

	if err := store.Remove(ctx, userID, res.ID); !errors.Is(err, favoritestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListResourcesForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := favoritestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	older := fixtures.CreateResourceAt(ctx, "Older", base, nil)
	newer := fixtures.CreateResourceAt(ctx, "Newer", base.Add(time.Minute), nil)
	fixtures.CreateResource(ctx, "Not Favorited")

	userID := primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{older.ID, newer.ID} {
		if _, _, err := store.Add(ctx, userID, id); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	rows, err := store.ListResourcesForUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListResourcesForUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d resources, want 2", len(rows))
	}
	if rows[0].Name != "Newer" || rows[1].Name != "Older" {
		t.Errorf("order: got %q, %q", rows[0].Name, rows[1].Name)
	}

	empty, err := store.ListResourcesForUser(ctx, primitive.NewObjectID())
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty list, got %v (%v)", empty, err)
	}
}
