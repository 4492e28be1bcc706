// internal/app/store/resources/resourcestore.go
package resourcestore

import (
	"context"
	"errors"
	"time"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/search"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/txn"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no resource has the requested id.
var ErrNotFound = errors.New("resource not found")

type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection("resources")}
}

// Create inserts a new Resource, setting NameCI, zeroed counters and timestamps.
func (s *Store) Create(ctx context.Context, r models.Resource) (models.Resource, error) {
	now := time.Now().UTC()

	r.ID = primitive.NewObjectID()
	r.NameCI = text.Fold(r.Name)
	r.FavoriteCount = 0
	r.RatingAvg = 0
	r.RatingCount = 0
	r.CreatedAt = now
	r.UpdatedAt = &now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Resource{}, err
	}
	return r, nil
}

// Update replaces every editable field of a resource and returns the stored
// result. Counters, creation metadata and the id are never touched.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, mut models.Resource) (models.Resource, error) {
	now := time.Now().UTC()
	set := bson.M{
		"name":                 mut.Name,
		"name_ci":              text.Fold(mut.Name),
		"description":          mut.Description,
		"category":             mut.Category,
		"type":                 mut.Type,
		"tags":                 mut.Tags,
		"services_provided":    mut.ServicesProvided,
		"eligibility_criteria": mut.EligibilityCriteria,
		"contact":              mut.Contact,
		"address":              mut.Address,
		"operating_hours":      mut.OperatingHours,
		"image_url":            mut.ImageURL,
		"banner_url":           mut.BannerURL,
		"updated_at":           now,
	}
	update := bson.M{"$set": set}
	if mut.Location != nil {
		set["location"] = mut.Location
	} else {
		update["$unset"] = bson.M{"location": ""}
	}
	if mut.UpdatedByID != nil {
		set["updated_by_id"] = mut.UpdatedByID
	}

	var out models.Resource
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Resource{}, ErrNotFound
	}
	if err != nil {
		return models.Resource{}, err
	}
	return out, nil
}

// GetByID returns a resource by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Resource, error) {
	var r models.Resource
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Resource{}, ErrNotFound
	}
	if err != nil {
		return models.Resource{}, err
	}
	return r, nil
}

// Exists reports whether a resource with id is stored.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// GetByIDs returns multiple resources by their IDs, newest first.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(search.CreatedDesc))
}

// Delete removes a resource and everything that references it: favorites,
// ratings, reviews and the likes on those reviews. A business representative
// who managed it keeps their role but loses the assignment.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}

		reviewIDs, err := distinctIDs(ctx, s.db.Collection("reviews"), bson.M{"resource_id": id})
		if err != nil {
			return err
		}
		if len(reviewIDs) > 0 {
			if _, err := s.db.Collection("review_likes").DeleteMany(ctx,
				bson.M{"review_id": bson.M{"$in": reviewIDs}}); err != nil {
				return err
			}
		}
		for _, coll := range []string{"reviews", "ratings", "favorites"} {
			if _, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{"resource_id": id}); err != nil {
				return err
			}
		}
		_, err = s.db.Collection("users").UpdateMany(ctx,
			bson.M{"managed_resource_id": id},
			bson.M{"$unset": bson.M{"managed_resource_id": ""}})
		return err
	})
}

func distinctIDs(ctx context.Context, c *mongo.Collection, filter bson.M) ([]primitive.ObjectID, error) {
	vals, err := c.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if oid, ok := v.(primitive.ObjectID); ok {
			out = append(out, oid)
		}
	}
	return out, nil
}

// Find returns resources matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Resource, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	resources := []models.Resource{}
	if err := cur.All(ctx, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// Count returns the number of resources matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// ManualSearch runs f as a plain find, newest first. A limit of 0 returns
// every match.
func (s *Store) ManualSearch(ctx context.Context, f search.Filter, skip, limit int64) ([]models.Resource, int64, error) {
	filter := search.ManualFilter(f)
	opts := options.Find().SetSort(search.CreatedDesc)
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	rows, err := s.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	if limit == 0 {
		return rows, int64(len(rows)), nil
	}
	total, err := s.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AtlasSearch runs f through the Atlas Search index. It fails on clusters
// without the index; callers fall back to ManualSearch.
func (s *Store) AtlasSearch(ctx context.Context, index string, f search.Filter, byCreated bool, skip, limit int64) ([]models.Resource, int64, error) {
	p := search.PageFacet(search.AtlasPipeline(index, f, byCreated), skip, limit)
	cur, err := s.c.Aggregate(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	if skip <= 0 && limit <= 0 {
		rows := []models.Resource{}
		if err := cur.All(ctx, &rows); err != nil {
			return nil, 0, err
		}
		return rows, int64(len(rows)), nil
	}

	var out []struct {
		Items []models.Resource `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return []models.Resource{}, 0, nil
	}
	var total int64
	if len(out[0].Total) > 0 {
		total = out[0].Total[0].N
	}
	items := out[0].Items
	if items == nil {
		items = []models.Resource{}
	}
	return items, total, nil
}

// SetLocation stores or clears the geocoded point for a resource.
func (s *Store) SetLocation(ctx context.Context, id primitive.ObjectID, loc *models.GeoPoint) error {
	update := bson.M{"$unset": bson.M{"location": ""}}
	if loc != nil {
		update = bson.M{"$set": bson.M{"location": loc}}
	}
	_, err := s.c.UpdateByID(ctx, id, update)
	return err
}

// LocationCandidates returns up to limit resources that have a zip code but
// no stored location. Resources never tried come first, then the least
// recently tried, so addresses that keep failing cannot starve the rest.
func (s *Store) LocationCandidates(ctx context.Context, limit int64) ([]models.Resource, error) {
	return s.Find(ctx,
		bson.M{
			"location":         bson.M{"$exists": false},
			"address.zip_code": bson.M{"$exists": true, "$ne": ""},
		},
		options.Find().
			SetSort(bson.D{
				{Key: "location_attempted_at", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			}).
			SetLimit(limit))
}

// MarkLocationAttempted records that ids were just sent to the geocoder.
func (s *Store) MarkLocationAttempted(ctx context.Context, ids []primitive.ObjectID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"location_attempted_at": at}})
	return err
}
