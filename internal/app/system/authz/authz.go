// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. ok=true means a valid, authenticated
// user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session; fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsBusinessRep reports whether the current request's user is a business representative.
func IsBusinessRep(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleBusinessRep
}

// ManagedResourceID returns the resource a business representative may
// edit. ok is false for other roles or when none is assigned.
func ManagedResourceID(r *http.Request) (primitive.ObjectID, bool) {
	user, signedIn := auth.CurrentUser(r)
	if !signedIn || strings.ToLower(user.Role) != models.RoleBusinessRep || user.ManagedResourceID == "" {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(user.ManagedResourceID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// CanEditResource reports whether the current user may modify resourceID:
// admins may edit any resource, business representatives only their own.
func CanEditResource(r *http.Request, resourceID primitive.ObjectID) bool {
	if IsAdmin(r) {
		return true
	}
	managed, ok := ManagedResourceID(r)
	return ok && managed == resourceID
}
