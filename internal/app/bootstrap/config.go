// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the directory service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: ADVO_MONGO_URI, ADVO_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "advo", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "advo-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Redis geocode cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the geocode cache (blank disables caching)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Geocoding
	{Name: "geocode_base_url", Default: "", Desc: "Geocoding API base URL (blank uses the built-in default)"},
	{Name: "geocode_api_key", Default: "", Desc: "Geocoding API key"},
	{Name: "geocode_rps", Default: 10, Desc: "Max outbound geocoding requests per second"},
	{Name: "geocode_cache_ttl", Default: "720h", Desc: "How long geocode results are cached"},

	// Search
	{Name: "search_index", Default: "resources_search", Desc: "Atlas Search index on the resources collection"},
	{Name: "search_use_atlas", Default: false, Desc: "Use Atlas Search for text queries (falls back to a manual filter on error)"},

	// Rate limiting
	{Name: "auth_rate_limit", Default: 60, Desc: "Requests per minute per IP on /api/v1/auth"},
	{Name: "trust_proxy", Default: false, Desc: "Take client IPs from X-Forwarded-For/X-Real-IP (only behind a trusted proxy)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email promoted to admin on startup and at registration"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_redirect_url", Default: "http://localhost:8080/api/v1/auth/google/callback", Desc: "Google OAuth2 callback URL"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, ADVO_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ADVO", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		GeocodeBaseURL:  appValues.String("geocode_base_url"),
		GeocodeAPIKey:   appValues.String("geocode_api_key"),
		GeocodeRPS:      appValues.Int("geocode_rps"),
		GeocodeCacheTTL: appValues.Duration("geocode_cache_ttl", 30*24*time.Hour),

		SearchIndex:    appValues.String("search_index"),
		SearchUseAtlas: appValues.Bool("search_use_atlas"),

		AuthRateLimit: appValues.Int("auth_rate_limit"),
		TrustProxy:    appValues.Bool("trust_proxy"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		AdminEmail: appValues.String("admin_email"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		GoogleRedirectURL:  appValues.String("google_redirect_url"),
	}

	return coreCfg, appCfg, nil
}

var validAuditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI format is checked here to catch configuration errors
// early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.SessionKey == "" {
		return errors.New("session_key must be set")
	}
	if appCfg.GeocodeRPS <= 0 {
		return fmt.Errorf("geocode_rps must be positive, got %d", appCfg.GeocodeRPS)
	}
	if appCfg.AuthRateLimit <= 0 {
		return fmt.Errorf("auth_rate_limit must be positive, got %d", appCfg.AuthRateLimit)
	}
	if !validAuditModes[appCfg.AuditLogAuth] || !validAuditModes[appCfg.AuditLogAdmin] {
		return fmt.Errorf("audit_log_auth and audit_log_admin must be one of all, db, log, off")
	}
	if appCfg.SearchUseAtlas && appCfg.SearchIndex == "" {
		return errors.New("search_use_atlas requires search_index")
	}
	return nil
}
