// internal/app/features/resources/business.go
package resources

import (
	"net/http"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
)

var errNoManagedResource = apierr.Forbidden("no resource is assigned to this account")

// ServeManaged handles GET /api/v1/business/resource.
func (h *Handler) ServeManaged(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.ManagedResourceID(r)
	if !ok {
		h.ErrLog.Write(w, r, errNoManagedResource)
		return
	}
	h.serveByID(w, r, id)
}

// HandleUpdateManaged handles PUT /api/v1/business/resource. A business
// representative may edit exactly the resource assigned to them.
func (h *Handler) HandleUpdateManaged(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.ManagedResourceID(r)
	if !ok || !authz.CanEditResource(r, id) {
		h.ErrLog.Write(w, r, errNoManagedResource)
		return
	}
	h.update(w, r, id)
}
