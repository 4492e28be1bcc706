package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/auth"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reqAs(u *auth.SessionUser) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	if u == nil {
		return req
	}
	return auth.WithTestUser(req, u)
}

func TestUserCtx_Visitor(t *testing.T) {
	role, name, id, ok := authz.UserCtx(reqAs(nil))
	if ok || role != "visitor" || name != "" || id != primitive.NilObjectID {
		t.Errorf("unexpected visitor ctx: %q %q %v %v", role, name, id, ok)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	_, _, _, ok := authz.UserCtx(reqAs(&auth.SessionUser{ID: "bad", Role: "admin"}))
	if ok {
		t.Error("expected ok=false for malformed id")
	}
	if authz.IsAdmin(reqAs(&auth.SessionUser{ID: "bad", Role: "admin"})) {
		t.Error("expected IsAdmin false for malformed id")
	}
}

func TestUserCtx_LowercasesRole(t *testing.T) {
	id := primitive.NewObjectID()
	role, name, got, ok := authz.UserCtx(reqAs(&auth.SessionUser{ID: id.Hex(), Name: "Kim", Role: "ADMIN"}))
	if !ok || role != "admin" || name != "Kim" || got != id {
		t.Errorf("unexpected ctx: %q %q %v %v", role, name, got, ok)
	}
}

func TestIsAdmin_IsBusinessRep(t *testing.T) {
	admin := reqAs(&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "admin"})
	rep := reqAs(&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "business_rep"})

	if !authz.IsAdmin(admin) || authz.IsBusinessRep(admin) {
		t.Error("admin misclassified")
	}
	if authz.IsAdmin(rep) || !authz.IsBusinessRep(rep) {
		t.Error("business_rep misclassified")
	}
}

func TestCanEditResource(t *testing.T) {
	managed := primitive.NewObjectID()
	other := primitive.NewObjectID()

	admin := reqAs(&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "admin"})
	rep := reqAs(&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "business_rep", ManagedResourceID: managed.Hex()})
	repNone := reqAs(&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "business_rep"})
	user := reqAs(&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "user", ManagedResourceID: managed.Hex()})

	if !authz.CanEditResource(admin, other) {
		t.Error("admin should edit any resource")
	}
	if !authz.CanEditResource(rep, managed) {
		t.Error("rep should edit the managed resource")
	}
	if authz.CanEditResource(rep, other) {
		t.Error("rep must not edit another resource")
	}
	if authz.CanEditResource(repNone, managed) {
		t.Error("rep without assignment must not edit")
	}
	if authz.CanEditResource(user, managed) {
		t.Error("plain user must not edit even with a stray managed id")
	}
}
