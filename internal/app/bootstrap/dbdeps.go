// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geocode"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when no redis_addr is configured.
	Redis redis.UniversalClient

	// Geocoder is shared by search, resource writes and the location
	// backfill job so they draw from one rate limit and circuit breaker.
	Geocoder geocode.Geocoder
}
