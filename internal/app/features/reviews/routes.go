// internal/app/features/reviews/routes.go
package reviews

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// ResourceRoutes mounts at "/api/v1/resources/{id}/reviews".
func ResourceRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleCreate)
	})
	return r
}

// Routes mounts at "/api/v1/reviews".
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/like", h.HandleLike)
	r.Delete("/{id}/like", h.HandleUnlike)
	return r
}
