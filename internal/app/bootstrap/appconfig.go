// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: advo-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Redis backs the geocode cache. Blank RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Geocoding service
	GeocodeBaseURL  string
	GeocodeAPIKey   string
	GeocodeRPS      int           // outbound requests per second
	GeocodeCacheTTL time.Duration // how long lookups stay in redis

	// Resource search
	SearchIndex    string // Atlas Search index name on resources
	SearchUseAtlas bool   // try $search before the manual filter

	// Per-IP limit on /api/v1/auth requests per minute
	AuthRateLimit int

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that sets those headers itself.
	TrustProxy bool

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// AdminEmail is promoted to admin on startup and when it registers.
	AdminEmail string

	// Google OAuth (sign-in is disabled unless both id and secret are set)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}
