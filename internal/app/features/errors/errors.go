// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger writes JSON error responses and logs them with request context.
// 5xx causes are logged at error level and never reach the client; 4xx
// responses are logged at debug level.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, ae *apierr.Error) []zap.Field {
	fs := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", ae.Status),
		zap.String("code", ae.Code),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fs = append(fs, zap.String("request_id", id))
	}
	if u, ok := auth.CurrentUser(r); ok {
		fs = append(fs, zap.String("user_id", u.ID))
	}
	if ae.Err != nil {
		fs = append(fs, zap.Error(ae.Err))
	}
	return fs
}

// Write maps err onto an API error (anything unknown becomes a generic 500),
// logs it and writes the JSON body.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	ae := apierr.From(err)
	if ae.Status >= 500 {
		e.log.Error("request failed", e.fields(r, ae)...)
	} else {
		e.log.Debug("request rejected", append(e.fields(r, ae), zap.String("message", ae.Message))...)
	}
	jsonutil.WriteError(w, ae)
}

// LogServerError logs msg with err and answers with a generic 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ae := apierr.Internal(err)
	e.log.Error(msg, e.fields(r, ae)...)
	jsonutil.WriteError(w, ae)
}

// LogBadRequest logs msg with err at debug level and answers 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	ae := apierr.BadRequest(userMsg)
	ae.Err = err
	e.log.Debug(msg, e.fields(r, ae)...)
	jsonutil.WriteError(w, ae)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteError(w, apierr.NotFound("no route for "+r.Method+" "+r.URL.Path))
}

// MethodNotAllowed answers known routes hit with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusMethodNotAllowed, jsonutil.ErrorBody{
		Error: "method not allowed",
		Code:  "method_not_allowed",
	})
}
