// Package indexes reconciles the MongoDB indexes the directory relies on.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// OAuthStateTTL bounds how long an unconsumed Google sign-in state survives.
const OAuthStateTTL = 10 * time.Minute

type collectionSet struct {
	name   string
	ensure func(context.Context, *mongo.Database) error
}

var sets = []collectionSet{
	{"users", ensureUsers},
	{"resources", ensureResources},
	{"favorites", ensureFavorites},
	{"ratings", ensureRatings},
	{"reviews", ensureReviews},
	{"review_likes", ensureReviewLikes},
	{"audit_events", ensureAuditEvents},
	{"oauth_states", ensureOAuthStates},
}

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Problems are aggregated so every broken collection shows up in one error.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo and DocumentDB report IndexOptionsConflict when the same keys exist
// under another name or with other options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// desired describes one IndexModel in the terms reconcile compares on.
type desired struct {
	model  mongo.IndexModel
	name   string
	unique bool
	sig    string
}

func describe(m mongo.IndexModel) desired {
	d := desired{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = boolVal(m.Options.Unique)
	}
	return d
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A missing collection lists nothing; creating below will materialise it.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		d := describe(m)
		start := time.Now()
		action, err := reconcile(ctx, coll, d, existing)
		if err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", d.name),
				zap.String("keys", d.sig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			continue
		}
		zap.L().Info("index "+action,
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// reconcile makes one desired index present. It returns a short verb for the
// log line describing what happened.
func reconcile(ctx context.Context, coll *mongo.Collection, d desired, existing map[string]existingIndex) (string, error) {
	ex, ok := existing[d.sig]
	if !ok {
		_, err := coll.Indexes().CreateOne(ctx, d.model)
		if err == nil {
			return "created", nil
		}
		if !isOptionsConflictErr(err) {
			return "", explainCreateErr(coll, d, err)
		}
		// Raced with another creator or the listing was stale; re-read once.
		fresh, lerr := listIndexes(ctx, coll)
		if lerr != nil {
			return "", err
		}
		if ex, ok = fresh[d.sig]; !ok {
			return "", err
		}
	}

	if d.unique == boolVal(ex.Unique) && (d.name == "" || ex.Name == d.name) {
		return "reused", nil
	}

	// Options or name differ: drop and recreate under the desired definition.
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return "", fmt.Errorf("drop %s failed: %w", ex.Name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		return "", explainCreateErr(coll, d, err)
	}
	return "recreated", nil
}

func explainCreateErr(coll *mongo.Collection, d desired, err error) error {
	if !isDuplicateKeyErr(err) || !d.unique {
		return err
	}
	msg := "cannot create unique index (duplicates present)"
	if coll.Name() == "users" && strings.Contains(d.sig, "email:1") {
		msg += "; find them with db.users.aggregate([{ $group: { _id: \"$email\", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])"
	}
	return errors.New(msg)
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Admin user listing: filter by role/status, sort by folded name.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetName("idx_users_googleid").SetSparse(true),
		},
	})
}

func ensureResources(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("resources"), []mongo.IndexModel{
		// Default search order.
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_resources_createdat_id"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_resources_category_createdat"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_resources_tags"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_resources_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "address.zip_code", Value: 1}},
			Options: options.Index().SetName("idx_resources_zip"),
		},
		// Location backfill order.
		{
			Keys: bson.D{
				{Key: "location_attempted_at", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_resources_locattempt_createdat_id"),
		},
	})
}

func ensureFavorites(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("favorites"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "resource_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_favorites_user_resource"),
		},
		{
			Keys:    bson.D{{Key: "resource_id", Value: 1}},
			Options: options.Index().SetName("idx_favorites_resource"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_favorites_user_createdat"),
		},
	})
}

func ensureRatings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("ratings"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "resource_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_ratings_user_resource"),
		},
		{
			Keys:    bson.D{{Key: "resource_id", Value: 1}},
			Options: options.Index().SetName("idx_ratings_resource"),
		},
	})
}

func ensureReviews(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("reviews"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "resource_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_reviews_resource_createdat_id"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_reviews_user"),
		},
	})
}

func ensureReviewLikes(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("review_likes"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "review_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_reviewlikes_user_review"),
		},
		{
			Keys:    bson.D{{Key: "review_id", Value: 1}},
			Options: options.Index().SetName("idx_reviewlikes_review"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_timestamp"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauthstates_state"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_oauthstates_createdat").
				SetExpireAfterSeconds(int32(OAuthStateTTL / time.Second)),
		},
	})
}
