package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating scale bounds.
const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// Rating is one user's 1..5 score for a resource.
// (user_id, resource_id) is unique; re-rating replaces the score.
type Rating struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	ResourceID primitive.ObjectID `bson:"resource_id" json:"resource_id"`
	Score      int                `bson:"score" json:"score"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// RatingSummary is the aggregate view of a resource's ratings.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
	Mine    *int    `json:"mine,omitempty"`
}
