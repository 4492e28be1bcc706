// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/advocacy-resources/advo-sub000/internal/app/features/errors"
	"github.com/advocacy-resources/advo-sub000/internal/app/store/audit"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	events *audit.Store
	users  *userstore.Store
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
		events: audit.New(db),
		users:  userstore.New(db),
	}
}
