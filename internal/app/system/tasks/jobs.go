// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/advocacy-resources/advo-sub000/internal/app/store/oauthstate"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geo"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geocode"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// LocationBackfillLimit caps how many resources one backfill run geocodes.
const LocationBackfillLimit = 50

// LocationBackfillJob geocodes resources that have a zip code but no stored
// location, so distance searches can skip the lookup. Addresses that cannot
// be resolved are stamped and move behind untried resources on later runs.
func LocationBackfillJob(store *resourcestore.Store, g geocode.Geocoder, logger *zap.Logger) Job {
	return Job{
		Name:     "resource-location-backfill",
		Interval: 15 * time.Minute,
		Timeout:  2 * time.Minute,
		Run: func(ctx context.Context) error {
			rows, err := store.LocationCandidates(ctx, LocationBackfillLimit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}

			inputs := make([]geocode.Input, len(rows))
			for i, res := range rows {
				inputs[i] = geocode.Input{Address: res.Address.Line()}
			}
			points, err := geocode.Resolve(ctx, g, inputs, geocode.BatchSize)
			if err != nil {
				return err
			}

			stored := 0
			var missed []primitive.ObjectID
			for i, pt := range points {
				if pt == nil || !geo.Valid(*pt) {
					missed = append(missed, rows[i].ID)
					continue
				}
				if err := store.SetLocation(ctx, rows[i].ID, pt); err != nil {
					return err
				}
				stored++
			}
			if err := store.MarkLocationAttempted(ctx, missed, time.Now().UTC()); err != nil {
				return err
			}
			logger.Debug("resource locations backfilled",
				zap.Int("candidates", len(rows)), zap.Int("stored", stored), zap.Int("missed", len(missed)))
			return nil
		},
	}
}
