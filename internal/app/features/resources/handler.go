// internal/app/features/resources/handler.go
package resources

import (
	"net/http"

	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auditlog"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/geocode"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/search"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SearchConfig selects how free-text searches are executed.
type SearchConfig struct {
	Index    string // Atlas Search index name
	UseAtlas bool   // try Atlas Search before the manual filter
}

// Handler owns every resource endpoint: public search and view, admin
// CRUD and the business representative's managed resource.
//
// It is constructed once at startup in bootstrap, using the shared Mongo
// database handle, the geocoder and the logger.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Geocoder geocode.Geocoder
	Search   SearchConfig

	store *resourcestore.Store
}

// NewHandler constructs a Handler. geocoder may be nil, in which case
// distance searches are rejected and saved resources are not placed on the map.
func NewHandler(db *mongo.Database, geocoder geocode.Geocoder, cfg SearchConfig, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if cfg.Index == "" {
		cfg.Index = search.DefaultIndex
	}
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Geocoder: geocoder,
		Search:   cfg,
		store:    resourcestore.New(db),
	}
}

// errNotFound is returned for unknown and malformed resource ids alike.
var errNotFound = apierr.NotFound("resource not found")

// resourceID parses the {id} URL parameter.
func resourceID(r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return oid, err == nil
}
