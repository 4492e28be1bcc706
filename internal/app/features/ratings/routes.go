// internal/app/features/ratings/routes.go
package ratings

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at "/api/v1/resources/{id}/rating". Reading the summary
// is public.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSummary)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Put("/", h.HandleRate)
		pr.Delete("/", h.HandleRemove)
	})
	return r
}
