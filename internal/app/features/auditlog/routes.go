// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at "/api/v1/admin/audit". Access is restricted to admins.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
	})

	return r
}
