// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/auditlog"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// ServeLogout handles POST /api/v1/auth/logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := h.SessionMgr.SessionUserID(r)

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		// The client still drops its cookie on the 204; nothing else to undo.
		h.Log.Error("logout: save session", zap.Error(err))
	}

	h.AuditLog.Logout(r.Context(), r, userID)
	jsonutil.NoContent(w)
}
