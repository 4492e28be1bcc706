// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/advocacy-resources/advo-sub000/internal/app/store/audit"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, register, password).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin actions (user and resource changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ResourceID != nil {
		fields = append(fields, zap.String("resource_id", event.ResourceID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, email string) {
	ev := authEvent(r, audit.EventLoginSuccess, &userID, true)
	ev.Details = map[string]string{"auth_method": authMethod, "email": email}
	l.Log(ctx, ev)
}

// LoginFailed logs a failed login. eventType is one of the
// EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, email string, userID *primitive.ObjectID, reason string) {
	ev := authEvent(r, eventType, userID, false)
	ev.FailureReason = reason
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

// Logout logs a logout. userID may be empty when the session was unreadable.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	var oid *primitive.ObjectID
	if id, err := primitive.ObjectIDFromHex(userID); err == nil {
		oid = &id
	}
	l.Log(ctx, authEvent(r, audit.EventLogout, oid, true))
}

func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	ev := authEvent(r, audit.EventRegistered, &userID, true)
	ev.Details = map[string]string{"auth_method": authMethod}
	l.Log(ctx, ev)
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordChanged, &userID, true))
}

func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventAccountDeleted, &userID, true))
}

// --- Admin Events ---

func adminEvent(r *http.Request, eventType string, actorID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// UserUpdated logs an admin change to another user's account.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, fields string) {
	ev := adminEvent(r, audit.EventUserUpdated, actorID)
	ev.UserID = &userID
	ev.Details = map[string]string{"fields": fields}
	l.Log(ctx, ev)
}

func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID) {
	ev := adminEvent(r, audit.EventUserDeleted, actorID)
	ev.UserID = &userID
	l.Log(ctx, ev)
}

// ResourceCreated, ResourceUpdated and ResourceDeleted log changes to a
// directory resource. Business representatives editing their managed
// resource are logged through ResourceUpdated as well.
func (l *Logger) ResourceCreated(ctx context.Context, r *http.Request, actorID, resourceID primitive.ObjectID, name string) {
	ev := adminEvent(r, audit.EventResourceCreated, actorID)
	ev.ResourceID = &resourceID
	ev.Details = map[string]string{"name": name}
	l.Log(ctx, ev)
}

func (l *Logger) ResourceUpdated(ctx context.Context, r *http.Request, actorID, resourceID primitive.ObjectID, name string) {
	ev := adminEvent(r, audit.EventResourceUpdated, actorID)
	ev.ResourceID = &resourceID
	ev.Details = map[string]string{"name": name}
	l.Log(ctx, ev)
}

func (l *Logger) ResourceDeleted(ctx context.Context, r *http.Request, actorID, resourceID primitive.ObjectID) {
	ev := adminEvent(r, audit.EventResourceDeleted, actorID)
	ev.ResourceID = &resourceID
	l.Log(ctx, ev)
}

// ReviewRemoved logs an admin removing another user's review.
func (l *Logger) ReviewRemoved(ctx context.Context, r *http.Request, actorID, authorID, resourceID primitive.ObjectID) {
	ev := adminEvent(r, audit.EventReviewRemoved, actorID)
	ev.UserID = &authorID
	ev.ResourceID = &resourceID
	l.Log(ctx, ev)
}
