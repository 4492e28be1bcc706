package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a written comment on a resource, optionally carrying a score.
type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ResourceID primitive.ObjectID `bson:"resource_id" json:"resource_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	UserName   string             `bson:"user_name" json:"user_name"`
	Body       string             `bson:"body" json:"body"`
	Rating     *int               `bson:"rating,omitempty" json:"rating,omitempty"`
	LikeCount  int64              `bson:"like_count" json:"like_count"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReviewLike records that a user found a review helpful.
// (user_id, review_id) is unique.
type ReviewLike struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ReviewID  primitive.ObjectID `bson:"review_id" json:"review_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
