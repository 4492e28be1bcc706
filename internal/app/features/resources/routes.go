// internal/app/features/resources/routes.go
package resources

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// PublicRoutes mounts search and single-resource reads, typically at
// "/api/v1/resources". Bootstrap mounts the favorite, rating and review
// routers under "/{id}/..." on the returned router.
func PublicRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSearch)
	r.Get("/{id}", h.ServeResource)
	return r
}

// AdminRoutes mounts resource management, typically at "/api/v1/admin/resources".
//
// Example from bootstrap:
//
//	h := resources.NewHandler(db, geocoder, cfg, errLog, audit, logger)
//	r.Mount("/admin/resources", resources.AdminRoutes(h, sessionMgr))
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Admin-only feature; require a signed-in admin.
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeResource)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}

// BusinessRoutes mounts the business representative's own resource,
// typically at "/api/v1/business/resource".
func BusinessRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleBusinessRep))

		pr.Get("/", h.ServeManaged)
		pr.Put("/", h.HandleUpdateManaged)
	})

	return r
}
