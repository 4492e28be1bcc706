// internal/app/store/reviews/reviewstore.go
package reviewstore

import (
	"context"
	"errors"
	"time"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/search"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/txn"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a review (or a like being removed) does not exist.
	ErrNotFound = errors.New("review not found")
	// ErrAlreadyLiked is returned when a user likes the same review twice.
	ErrAlreadyLiked = errors.New("review already liked")
)

type Store struct {
	db        *mongo.Database
	c         *mongo.Collection
	likes     *mongo.Collection
	resources *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:        db,
		c:         db.Collection("reviews"),
		likes:     db.Collection("review_likes"),
		resources: db.Collection("resources"),
	}
}

// Create stores a review. Body is expected to be sanitized by the caller.
// Returns resourcestore.ErrNotFound when the resource does not exist.
func (s *Store) Create(ctx context.Context, rv models.Review) (models.Review, error) {
	n, err := s.resources.CountDocuments(ctx, bson.M{"_id": rv.ResourceID}, options.Count().SetLimit(1))
	if err != nil {
		return models.Review{}, err
	}
	if n == 0 {
		return models.Review{}, resourcestore.ErrNotFound
	}

	now := time.Now().UTC()
	rv.ID = primitive.NewObjectID()
	rv.LikeCount = 0
	rv.CreatedAt = now
	rv.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, rv); err != nil {
		return models.Review{}, err
	}
	return rv, nil
}

// GetByID loads one review.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var rv models.Review
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Review{}, ErrNotFound
	}
	return rv, err
}

// ListForResource returns one page of reviews for a resource, newest first,
// plus the total count.
func (s *Store) ListForResource(ctx context.Context, resourceID primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error) {
	filter := bson.M{"resource_id": resourceID}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(search.CreatedDesc).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Review{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes a review and its likes.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		_, err = s.likes.DeleteMany(ctx, bson.M{"review_id": id})
		return err
	})
}

// Like records that userID found the review helpful and bumps like_count.
// Returns the new like count.
func (s *Store) Like(ctx context.Context, userID, reviewID primitive.ObjectID) (int64, error) {
	var count int64
	err := txn.Run(ctx, s.db, func(ctx context.Context) error {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": reviewID}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = s.likes.InsertOne(ctx, models.ReviewLike{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			ReviewID:  reviewID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		count, err = s.bump(ctx, reviewID, 1)
		return err
	})
	if err != nil && wafflemongo.IsDup(err) {
		return 0, ErrAlreadyLiked
	}
	return count, err
}

// Unlike removes userID's like and decrements like_count.
func (s *Store) Unlike(ctx context.Context, userID, reviewID primitive.ObjectID) (int64, error) {
	var count int64
	err := txn.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.likes.DeleteOne(ctx, bson.M{"user_id": userID, "review_id": reviewID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		count, err = s.bump(ctx, reviewID, -1)
		return err
	})
	return count, err
}

func (s *Store) bump(ctx context.Context, reviewID primitive.ObjectID, delta int) (int64, error) {
	filter := bson.M{"_id": reviewID}
	if delta < 0 {
		filter["like_count"] = bson.M{"$gt": 0}
	}
	var rv models.Review
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{"like_count": delta}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"like_count": 1})).Decode(&rv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	return rv.LikeCount, err
}

// LikedBy returns which of reviewIDs userID has liked.
func (s *Store) LikedBy(ctx context.Context, userID primitive.ObjectID, reviewIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := map[primitive.ObjectID]bool{}
	if len(reviewIDs) == 0 {
		return out, nil
	}
	cur, err := s.likes.Find(ctx, bson.M{"user_id": userID, "review_id": bson.M{"$in": reviewIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.ReviewLike
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, l := range rows {
		out[l.ReviewID] = true
	}
	return out, nil
}
