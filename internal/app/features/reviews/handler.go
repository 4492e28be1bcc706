// internal/app/features/reviews/handler.go
package reviews

import (
	"net/http"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	reviewstore "github.com/advocacy-resources/advo-sub000/internal/app/store/reviews"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auditlog"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger

	reviews   *reviewstore.Store
	resources *resourcestore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Log:       logger,
		ErrLog:    errLog,
		AuditLog:  audit,
		reviews:   reviewstore.New(db),
		resources: resourcestore.New(db),
	}
}

var (
	errResourceNotFound = apierr.NotFound("resource not found")
	errReviewNotFound   = apierr.NotFound("review not found")
)

// pathID parses the {id} route parameter, answering notFound when it is not
// an ObjectID.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, notFound error) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, notFound)
		return id, false
	}
	return id, true
}
