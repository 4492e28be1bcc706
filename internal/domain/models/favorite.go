package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Favorite links a user to a resource they bookmarked.
// (user_id, resource_id) is unique.
type Favorite struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	ResourceID primitive.ObjectID `bson:"resource_id" json:"resource_id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
