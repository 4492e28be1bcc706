// internal/domain/models/resource.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource is a directory listing such as a health clinic or a legal aid
// organization. Contact, address and hours are embedded documents.
type Resource struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped

	Description         string   `bson:"description,omitempty" json:"description,omitempty"`
	Category            []string `bson:"category" json:"category"`
	Type                []string `bson:"type,omitempty" json:"type,omitempty"`
	Tags                []string `bson:"tags,omitempty" json:"tags,omitempty"`
	ServicesProvided    []string `bson:"services_provided,omitempty" json:"services_provided,omitempty"`
	EligibilityCriteria string   `bson:"eligibility_criteria,omitempty" json:"eligibility_criteria,omitempty"`

	Contact        Contact                  `bson:"contact" json:"contact"`
	Address        Address                  `bson:"address" json:"address"`
	OperatingHours map[string]OperatingDay `bson:"operating_hours,omitempty" json:"operating_hours,omitempty"`
	Location       *GeoPoint                `bson:"location,omitempty" json:"location,omitempty"`

	ImageURL  string `bson:"image_url,omitempty" json:"image_url,omitempty"`
	BannerURL string `bson:"banner_url,omitempty" json:"banner_url,omitempty"`

	FavoriteCount int64   `bson:"favorite_count" json:"favorite_count"`
	RatingAvg     float64 `bson:"rating_avg" json:"rating_avg"`
	RatingCount   int64   `bson:"rating_count" json:"rating_count"`

	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	CreatedByID *primitive.ObjectID `bson:"created_by_id,omitempty" json:"created_by_id,omitempty"`
	UpdatedByID *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
}

// Contact holds the public ways to reach a resource.
type Contact struct {
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Website string `bson:"website,omitempty" json:"website,omitempty"`
}

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode string `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// Line renders the address as a single geocodable string.
func (a Address) Line() string {
	out := ""
	for _, part := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// IsEmpty reports whether no address component is set.
func (a Address) IsEmpty() bool {
	return a.Line() == ""
}

// OperatingDay is the open/close window for one weekday. Times are
// free-form strings such as "09:00".
type OperatingDay struct {
	Open   string `bson:"open,omitempty" json:"open,omitempty"`
	Close  string `bson:"close,omitempty" json:"close,omitempty"`
	Closed bool   `bson:"closed,omitempty" json:"closed,omitempty"`
}

// GeoPoint is a latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}
