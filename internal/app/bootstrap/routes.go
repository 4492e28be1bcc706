// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditlogfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/auditlog"
	authgooglefeature "github.com/advocacy-resources/advo-sub000/internal/app/features/authgoogle"
	errorsfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	favoritesfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/favorites"
	healthfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/health"
	loginfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/login"
	logoutfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/logout"
	profilefeature "github.com/advocacy-resources/advo-sub000/internal/app/features/profile"
	ratingsfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/ratings"
	resourcesfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/resources"
	reviewsfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/reviews"
	systemusersfeature "github.com/advocacy-resources/advo-sub000/internal/app/features/systemusers"
	"github.com/advocacy-resources/advo-sub000/internal/app/store/audit"
	"github.com/advocacy-resources/advo-sub000/internal/app/store/oauthstate"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auditlog"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/httplog"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/metrics"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Everything under /api/v1 speaks JSON;
// /health and /metrics sit at the root for probes and scrapers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the user on every request so role changes
	// and disabled accounts take effect immediately.
	db := deps.MongoDatabase
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if appCfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(httplog.RequestID)
	r.Use(httplog.Middleware(logger))
	r.Use(metrics.Middleware)
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(httplog.CaptureUser)

	// Subrouters without their own handlers inherit these.
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	resourcesHandler := resourcesfeature.NewHandler(db, deps.Geocoder, resourcesfeature.SearchConfig{
		Index:    appCfg.SearchIndex,
		UseAtlas: appCfg.SearchUseAtlas,
	}, errLog, auditLogger, logger)
	favoritesHandler := favoritesfeature.NewHandler(db, errLog, logger)
	ratingsHandler := ratingsfeature.NewHandler(db, errLog, logger)
	reviewsHandler := reviewsfeature.NewHandler(db, errLog, auditLogger, logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Use(ratelimit.PerIP(ratelimit.New(appCfg.AuthRateLimit, time.Minute)))

			ar.Mount("/", loginfeature.Routes(loginfeature.NewHandler(db, sessionMgr, errLog, auditLogger, nil, appCfg.AdminEmail, logger)))
			ar.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, auditLogger, logger), sessionMgr))

			if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
				googleHandler := authgooglefeature.NewHandler(db, sessionMgr, errLog, auditLogger,
					oauthstate.New(db), appCfg.GoogleClientID, appCfg.GoogleClientSecret,
					appCfg.GoogleRedirectURL, appCfg.AdminEmail, logger)
				ar.Mount("/google", authgooglefeature.Routes(googleHandler))
				logger.Info("Google OAuth enabled")
			}
		})

		pub := resourcesfeature.PublicRoutes(resourcesHandler)
		pub.Mount("/{id}/favorite", favoritesfeature.ResourceRoutes(favoritesHandler, sessionMgr))
		pub.Mount("/{id}/rating", ratingsfeature.Routes(ratingsHandler, sessionMgr))
		pub.Mount("/{id}/reviews", reviewsfeature.ResourceRoutes(reviewsHandler, sessionMgr))
		api.Mount("/resources", pub)

		api.Mount("/reviews", reviewsfeature.Routes(reviewsHandler, sessionMgr))

		me := profilefeature.Routes(profilefeature.NewHandler(db, sessionMgr, errLog, auditLogger, logger), sessionMgr)
		me.Mount("/favorites", favoritesfeature.MeRoutes(favoritesHandler, sessionMgr))
		api.Mount("/users/me", me)

		api.Mount("/admin/resources", resourcesfeature.AdminRoutes(resourcesHandler, sessionMgr))
		api.Mount("/admin/users", systemusersfeature.Routes(systemusersfeature.NewHandler(db, errLog, auditLogger, logger), sessionMgr))
		api.Mount("/admin/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(db, errLog, logger), sessionMgr))

		api.Mount("/business/resource", resourcesfeature.BusinessRoutes(resourcesHandler, sessionMgr))
	})

	return r, nil
}
