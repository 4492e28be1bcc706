package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	ratingstore "github.com/advocacy-resources/advo-sub000/internal/app/store/ratings"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/search"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/txn"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user has the requested id or email.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrBadRole is returned for roles other than user, business_rep and admin.
	ErrBadRole = errors.New(`role must be "user"|"business_rep"|"admin"`)
	// ErrBadStatus is returned for statuses other than active and disabled.
	ErrBadStatus = errors.New(`status must be "active"|"disabled"`)
	// ErrManagedResourceNeeded is returned when a business_rep has no managed resource.
	ErrManagedResourceNeeded = errors.New("business_rep must have managed_resource_id")
)

type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection("users")}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByIDs loads the users with the given ids, in no particular order.
// Missing ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	out := []models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByGoogleID looks up a user linked to a Google account.
func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"google_id": googleID})
}

func validRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleBusinessRep, models.RoleAdmin:
		return true
	}
	return false
}

func validStatus(status string) bool {
	return status == models.StatusActive || status == models.StatusDisabled
}

// checkManaged verifies the business_rep invariant: a managed resource id
// is present and refers to a stored resource.
func (s *Store) checkManaged(ctx context.Context, role string, managed *primitive.ObjectID) error {
	if role != models.RoleBusinessRep {
		return nil
	}
	if managed == nil {
		return ErrManagedResourceNeeded
	}
	ok, err := resourcestore.New(s.db).Exists(ctx, *managed)
	if err != nil {
		return err
	}
	if !ok {
		return resourcestore.ErrNotFound
	}
	return nil
}

// Create inserts a new user after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	if !validRole(u.Role) {
		return models.User{}, ErrBadRole
	}
	if !validStatus(u.Status) {
		return models.User{}, ErrBadStatus
	}
	if u.Role != models.RoleBusinessRep {
		u.ManagedResourceID = nil
	}
	if err := s.checkManaged(ctx, u.Role, u.ManagedResourceID); err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) updateAndReturn(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile sets the fields a user edits about themself.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name string, demo models.Demographics) (*models.User, error) {
	name = normalize.Name(name)
	demo.ZipCode = normalize.ZipCode(demo.ZipCode)
	return s.updateAndReturn(ctx, id, bson.M{"$set": bson.M{
		"name":         name,
		"name_ci":      text.Fold(name),
		"demographics": demo,
		"updated_at":   time.Now().UTC(),
	}})
}

// SetPassword stores a new bcrypt hash and marks the account as password-enabled.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkGoogle records the Google subject id for an existing user.
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"google_id":  googleID,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// AdminUpdate holds the fields an administrator can change. Nil fields are
// left as they are.
type AdminUpdate struct {
	Name              *string
	Role              *string
	Status            *string
	ManagedResourceID *primitive.ObjectID
}

// UpdateByAdmin applies upd after validating role, status and the
// business_rep invariant against the merged result.
func (s *Store) UpdateByAdmin(ctx context.Context, id primitive.ObjectID, upd AdminUpdate) (*models.User, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	role := cur.Role
	if upd.Role != nil {
		role = normalize.Role(*upd.Role)
		if !validRole(role) {
			return nil, ErrBadRole
		}
		set["role"] = role
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if !validStatus(st) {
			return nil, ErrBadStatus
		}
		set["status"] = st
	}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}

	managed := cur.ManagedResourceID
	if upd.ManagedResourceID != nil {
		managed = upd.ManagedResourceID
	}
	if role == models.RoleBusinessRep {
		if err := s.checkManaged(ctx, role, managed); err != nil {
			return nil, err
		}
		set["managed_resource_id"] = managed
	} else {
		unset["managed_resource_id"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.updateAndReturn(ctx, id, update)
}

// ListFilter narrows an admin user listing.
type ListFilter struct {
	Query  string // matches name or email
	Role   string
	Status string
}

// List returns one page of users and the total count. Results are ordered
// by name unless the query looks like an email with a fixed status, in
// which case they are ordered by email.
func (s *Store) List(ctx context.Context, f ListFilter, skip, limit int64) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = normalize.Role(f.Role)
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if f.Query != "" {
		q := regexp.QuoteMeta(text.Fold(f.Query))
		filter["$or"] = []bson.M{
			{"name_ci": bson.M{"$regex": q}},
			{"email": bson.M{"$regex": regexp.QuoteMeta(normalize.Email(f.Query))}},
		}
	}

	sortField := "name_ci"
	if search.SortByEmail(f.Query, f.Status) {
		sortField = "email"
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: sortField, Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PromoteToAdmin sets the admin role on the user with email. It reports
// false when no such user exists yet.
func (s *Store) PromoteToAdmin(ctx context.Context, email string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{
			"$set":   bson.M{"role": models.RoleAdmin, "status": models.StatusActive, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"managed_resource_id": ""},
		})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Delete removes a user and everything they own: favorites, ratings,
// reviews (with the likes on them) and the likes they gave. Resource
// favorite counts, rating aggregates and review like counts are kept in step.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}

		favorites := s.db.Collection("favorites")
		favResIDs, err := distinctField(ctx, favorites, "resource_id", bson.M{"user_id": id})
		if err != nil {
			return err
		}
		if _, err := favorites.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return err
		}
		if len(favResIDs) > 0 {
			if _, err := s.db.Collection("resources").UpdateMany(ctx,
				bson.M{"_id": bson.M{"$in": favResIDs}, "favorite_count": bson.M{"$gt": 0}},
				bson.M{"$inc": bson.M{"favorite_count": -1}}); err != nil {
				return err
			}
		}

		ratings := s.db.Collection("ratings")
		ratedResIDs, err := distinctField(ctx, ratings, "resource_id", bson.M{"user_id": id})
		if err != nil {
			return err
		}
		if _, err := ratings.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return err
		}
		if err := ratingstore.New(s.db).Recompute(ctx, ratedResIDs...); err != nil {
			return err
		}

		reviews := s.db.Collection("reviews")
		likes := s.db.Collection("review_likes")
		ownReviewIDs, err := distinctField(ctx, reviews, "_id", bson.M{"user_id": id})
		if err != nil {
			return err
		}
		if len(ownReviewIDs) > 0 {
			if _, err := likes.DeleteMany(ctx, bson.M{"review_id": bson.M{"$in": ownReviewIDs}}); err != nil {
				return err
			}
		}
		if _, err := reviews.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return err
		}

		likedReviewIDs, err := distinctField(ctx, likes, "review_id", bson.M{"user_id": id})
		if err != nil {
			return err
		}
		if _, err := likes.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return err
		}
		if len(likedReviewIDs) > 0 {
			if _, err := reviews.UpdateMany(ctx,
				bson.M{"_id": bson.M{"$in": likedReviewIDs}, "like_count": bson.M{"$gt": 0}},
				bson.M{"$inc": bson.M{"like_count": -1}}); err != nil {
				return err
			}
		}
		return nil
	})
}

func distinctField(ctx context.Context, c *mongo.Collection, field string, filter bson.M) ([]primitive.ObjectID, error) {
	vals, err := c.Distinct(ctx, field, filter)
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
