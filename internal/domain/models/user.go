// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleUser        = "user"
	RoleBusinessRep = "business_rep"
	RoleAdmin       = "admin"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User represents site visitors who registered, business representatives
// and administrators.
//
// NOTE:
//   - A business representative manages exactly one resource, referenced by
//     ManagedResourceID. Other roles leave it nil.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	PasswordHash *string            `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method,omitempty" json:"auth_method,omitempty"` // password | google
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"`
	Status       string             `bson:"status" json:"status"` // active | disabled

	ManagedResourceID *primitive.ObjectID `bson:"managed_resource_id,omitempty" json:"managed_resource_id,omitempty"`

	Demographics Demographics `bson:"demographics" json:"demographics"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Demographics is the optional profile a registered user maintains.
// Every field is self-reported and may be blank.
type Demographics struct {
	AgeRange          string `bson:"age_range,omitempty" json:"age_range,omitempty"`
	Gender            string `bson:"gender,omitempty" json:"gender,omitempty"`
	RaceEthnicity     string `bson:"race_ethnicity,omitempty" json:"race_ethnicity,omitempty"`
	IncomeRange       string `bson:"income_range,omitempty" json:"income_range,omitempty"`
	ZipCode           string `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	State             string `bson:"state,omitempty" json:"state,omitempty"`
	PreferredLanguage string `bson:"preferred_language,omitempty" json:"preferred_language,omitempty"`
	VeteranStatus     string `bson:"veteran_status,omitempty" json:"veteran_status,omitempty"`
	DisabilityStatus  string `bson:"disability_status,omitempty" json:"disability_status,omitempty"`
	HouseholdSize     int    `bson:"household_size,omitempty" json:"household_size,omitempty"`
}
