// internal/app/store/favorites/favoritestore.go
package favoritestore

import (
	"context"
	"errors"
	"time"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/txn"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when removing a favorite that does not exist.
var ErrNotFound = errors.New("favorite not found")

type Store struct {
	db        *mongo.Database
	c         *mongo.Collection
	resources *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:        db,
		c:         db.Collection("favorites"),
		resources: db.Collection("resources"),
	}
}

// Add favorites resourceID for userID. created is false when the favorite
// already existed; the resource's favorite_count only moves on a new insert.
// Returns resourcestore.ErrNotFound when the resource does not exist.
func (s *Store) Add(ctx context.Context, userID, resourceID primitive.ObjectID) (fav models.Favorite, created bool, err error) {
	err = txn.Run(ctx, s.db, func(ctx context.Context) error {
		created = false
		n, err := s.resources.CountDocuments(ctx, bson.M{"_id": resourceID}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return resourcestore.ErrNotFound
		}

		err = s.c.FindOne(ctx, bson.M{"user_id": userID, "resource_id": resourceID}).Decode(&fav)
		if err == nil {
			return nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}

		fav = models.Favorite{
			ID:         primitive.NewObjectID(),
			UserID:     userID,
			ResourceID: resourceID,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := s.c.InsertOne(ctx, fav); err != nil {
			return err
		}
		created = true
		_, err = s.resources.UpdateByID(ctx, resourceID, bson.M{"$inc": bson.M{"favorite_count": 1}})
		return err
	})
	if err != nil && wafflemongo.IsDup(err) {
		// Lost a race with a concurrent add of the same favorite.
		created = false
		err = s.c.FindOne(ctx, bson.M{"user_id": userID, "resource_id": resourceID}).Decode(&fav)
	}
	return fav, created, err
}

// Remove deletes the favorite and decrements the resource's favorite_count.
func (s *Store) Remove(ctx context.Context, userID, resourceID primitive.ObjectID) error {
	return txn.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "resource_id": resourceID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		_, err = s.resources.UpdateOne(ctx,
			bson.M{"_id": resourceID, "favorite_count": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"favorite_count": -1}})
		return err
	})
}

// IsFavorite reports whether userID has favorited resourceID.
func (s *Store) IsFavorite(ctx context.Context, userID, resourceID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "resource_id": resourceID}, options.Count().SetLimit(1))
	return n > 0, err
}

// ResourceIDsForUser returns the favorited resource ids, most recent first.
func (s *Store) ResourceIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetProjection(bson.M{"resource_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.Favorite
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.ResourceID)
	}
	return ids, nil
}

// ListResourcesForUser returns the resources userID favorited, ordered by
// resource creation date, newest first.
func (s *Store) ListResourcesForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Resource, error) {
	ids, err := s.ResourceIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Resource{}, nil
	}
	return resourcestore.New(s.db).GetByIDs(ctx, ids)
}
