// internal/app/features/profile/routes.go
package profile

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at "/api/v1/users/me".
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Put("/", h.HandleUpdate)
	r.Delete("/", h.HandleDelete)
	r.Put("/password", h.HandleChangePassword)
	return r
}
