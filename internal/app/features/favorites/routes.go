// internal/app/features/favorites/routes.go
package favorites

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// ResourceRoutes mounts at "/api/v1/resources/{id}/favorite".
func ResourceRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeStatus)
	r.Post("/", h.HandleAdd)
	r.Delete("/", h.HandleRemove)
	return r
}

// MeRoutes mounts at "/api/v1/users/me/favorites".
func MeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	return r
}
