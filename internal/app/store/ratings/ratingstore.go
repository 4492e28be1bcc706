// internal/app/store/ratings/ratingstore.go
package ratingstore

import (
	"context"
	"errors"
	"math"
	"time"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/txn"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when removing a rating that does not exist.
	ErrNotFound = errors.New("rating not found")
	// ErrBadScore is returned for scores outside 1..5.
	ErrBadScore = errors.New("score must be between 1 and 5")
)

type Store struct {
	db        *mongo.Database
	c         *mongo.Collection
	resources *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:        db,
		c:         db.Collection("ratings"),
		resources: db.Collection("resources"),
	}
}

// Upsert records userID's score for resourceID, replacing any earlier
// score, then refreshes the resource's rating_avg and rating_count.
func (s *Store) Upsert(ctx context.Context, userID, resourceID primitive.ObjectID, score int) (models.RatingSummary, error) {
	if score < models.MinRatingScore || score > models.MaxRatingScore {
		return models.RatingSummary{}, ErrBadScore
	}
	var sum models.RatingSummary
	err := txn.Run(ctx, s.db, func(ctx context.Context) error {
		n, err := s.resources.CountDocuments(ctx, bson.M{"_id": resourceID}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return resourcestore.ErrNotFound
		}

		now := time.Now().UTC()
		_, err = s.c.UpdateOne(ctx,
			bson.M{"user_id": userID, "resource_id": resourceID},
			bson.M{
				"$set":         bson.M{"score": score, "updated_at": now},
				"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "created_at": now},
			},
			options.Update().SetUpsert(true))
		if err != nil {
			return err
		}
		sum, err = s.recompute(ctx, resourceID)
		return err
	})
	if err != nil {
		return models.RatingSummary{}, err
	}
	sum.Mine = &score
	return sum, nil
}

// Remove deletes userID's rating of resourceID and refreshes the aggregate.
func (s *Store) Remove(ctx context.Context, userID, resourceID primitive.ObjectID) error {
	return txn.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "resource_id": resourceID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		_, err = s.recompute(ctx, resourceID)
		return err
	})
}

// Summary returns the aggregate for resourceID. When userID is non-nil the
// caller's own score is included.
func (s *Store) Summary(ctx context.Context, resourceID primitive.ObjectID, userID *primitive.ObjectID) (models.RatingSummary, error) {
	var r models.Resource
	err := s.resources.FindOne(ctx, bson.M{"_id": resourceID},
		options.FindOne().SetProjection(bson.M{"rating_avg": 1, "rating_count": 1})).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RatingSummary{}, resourcestore.ErrNotFound
	}
	if err != nil {
		return models.RatingSummary{}, err
	}
	sum := models.RatingSummary{Average: r.RatingAvg, Count: r.RatingCount}

	if userID != nil {
		var mine models.Rating
		err := s.c.FindOne(ctx, bson.M{"user_id": *userID, "resource_id": resourceID}).Decode(&mine)
		switch {
		case err == nil:
			sum.Mine = &mine.Score
		case !errors.Is(err, mongo.ErrNoDocuments):
			return models.RatingSummary{}, err
		}
	}
	return sum, nil
}

// Recompute refreshes the stored aggregate for each resource id.
// User deletion calls it after removing that user's ratings.
func (s *Store) Recompute(ctx context.Context, resourceIDs ...primitive.ObjectID) error {
	for _, id := range resourceIDs {
		if _, err := s.recompute(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) recompute(ctx context.Context, resourceID primitive.ObjectID) (models.RatingSummary, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"resource_id": resourceID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$score"},
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return models.RatingSummary{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return models.RatingSummary{}, err
	}
	var sum models.RatingSummary
	if len(rows) > 0 {
		sum.Average = RoundAverage(rows[0].Avg)
		sum.Count = rows[0].Count
	}
	_, err = s.resources.UpdateByID(ctx, resourceID, bson.M{"$set": bson.M{
		"rating_avg":   sum.Average,
		"rating_count": sum.Count,
	}})
	return sum, err
}

// RoundAverage rounds to one decimal place.
func RoundAverage(v float64) float64 {
	return math.Round(v*10) / 10
}
