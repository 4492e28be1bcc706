// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/advocacy-resources/advo-sub000/internal/app/store/oauthstate"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/tasks"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	schedMu   sync.Mutex
	scheduler *tasks.Scheduler
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// timeout overrides, promotes the configured admin and starts background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	if err := ensureAdmin(ctx, deps.MongoDatabase, appCfg.AdminEmail, logger); err != nil {
		return err
	}

	jobs := []tasks.Job{tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger)}
	if deps.Geocoder != nil {
		jobs = append(jobs, tasks.LocationBackfillJob(resourcestore.New(deps.MongoDatabase), deps.Geocoder, logger))
	}
	s := tasks.NewScheduler(logger, jobs...)
	s.Start()

	schedMu.Lock()
	scheduler = s
	schedMu.Unlock()
	return nil
}

// ensureAdmin gives the admin role to an existing account with email. When
// no such account exists yet, registration and Google sign-in grant the role
// instead.
func ensureAdmin(ctx context.Context, db *mongo.Database, email string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	found, err := userstore.New(db).PromoteToAdmin(ctx, email)
	if err != nil {
		logger.Error("admin promotion failed", zap.String("email", email), zap.Error(err))
		return err
	}
	if found {
		logger.Info("admin account ensured", zap.String("email", email))
	} else {
		logger.Info("admin account not registered yet; role will be granted at sign-up", zap.String("email", email))
	}
	return nil
}

func stopScheduler() {
	schedMu.Lock()
	defer schedMu.Unlock()
	if scheduler != nil {
		scheduler.Stop()
		scheduler = nil
	}
}
