package reviewstore_test

import (
	"errors"
	"testing"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	reviewstore "github.com/advocacy-resources/advo-sub000/internal/app/store/reviews"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/advocacy-resources/advo-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestStore_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reviewstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Clinic")
	user := primitive.NewObjectID()
	four := 4

	for _, body := range []string{"first", "second", "third"} {
		if _, err := store.Create(ctx, models.Review{ResourceID: res.ID, UserID: user, UserName: "U", Body: body, Rating: &four}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, total, err := store.ListForResource(ctx, res.ID, 0, 2)
	if err != nil {
		t.Fatalf("ListForResource: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("got %d rows (total %d)", len(rows), total)
	}
	if rows[0].Body != "third" {
		t.Errorf("expected newest first, got %q", rows[0].Body)
	}
	if rows[0].Rating == nil || *rows[0].Rating != 4 {
		t.Error("expected rating to round trip")
	}

	if _, err := store.Create(ctx, models.Review{ResourceID: primitive.NewObjectID(), UserID: user, Body: "x"}); !errors.Is(err, resourcestore.ErrNotFound) {
		t.Errorf("expected resource ErrNotFound, got %v", err)
	}
}

func TestStore_LikeUnlike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reviewstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("review_likes").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "review_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("create index: %v", err)
	}

	res := fixtures.CreateResource(ctx, "Clinic")
	rv, err := store.Create(ctx, models.Review{ResourceID: res.ID, UserID: primitive.NewObjectID(), Body: "helpful"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	liker := primitive.NewObjectID()

	n, err := store.Like(ctx, liker, rv.ID)
	if err != nil || n != 1 {
		t.Fatalf("Like: n=%d err=%v", n, err)
	}
	if _, err := store.Like(ctx, liker, rv.ID); !errors.Is(err, reviewstore.ErrAlreadyLiked) {
		t.Errorf("expected ErrAlreadyLiked, got %v", err)
	}

	liked, err := store.LikedBy(ctx, liker, []primitive.ObjectID{rv.ID})
	if err != nil || !liked[rv.ID] {
		t.Errorf("LikedBy: %v %v", liked, err)
	}

	n, err = store.Unlike(ctx, liker, rv.ID)
	if err != nil || n != 0 {
		t.Fatalf("Unlike: n=%d err=%v", n, err)
	}
	if _, err := store.Unlike(ctx, liker, rv.ID); !errors.Is(err, reviewstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Like(ctx, liker, primitive.NewObjectID()); !errors.Is(err, reviewstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing review, got %v", err)
	}
}

func TestStore_DeleteRemovesLikes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reviewstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fixtures.CreateResource(ctx, "Clinic")
	rv, err := store.Create(ctx, models.Review{ResourceID: res.ID, UserID: primitive.NewObjectID(), Body: "bye"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Like(ctx, primitive.NewObjectID(), rv.ID); err != nil {
		t.Fatalf("Like: %v", err)
	}

	if err := store.Delete(ctx, rv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, _ := db.Collection("review_likes").CountDocuments(ctx, bson.M{"review_id": rv.ID})
	if n != 0 {
		t.Errorf("expected likes to be removed, %d left", n)
	}
	if _, err := store.GetByID(ctx, rv.ID); !errors.Is(err, reviewstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
