// internal/app/features/systemusers/types.go
package systemusers

import (
	"errors"

	resourcestore "github.com/advocacy-resources/advo-sub000/internal/app/store/resources"
	userstore "github.com/advocacy-resources/advo-sub000/internal/app/store/users"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRequest struct {
	Email             string `json:"email" validate:"required,email,max=254"`
	Name              string `json:"name" validate:"required,max=100"`
	Password          string `json:"password" validate:"required"`
	Role              string `json:"role" validate:"omitempty,oneof=user business_rep admin"`
	ManagedResourceID string `json:"managed_resource_id" validate:"omitempty,mongodb"`
}

// updateRequest fields are optional; nil means unchanged.
type updateRequest struct {
	Name              *string `json:"name" validate:"omitempty,min=1,max=100"`
	Role              *string `json:"role" validate:"omitempty,oneof=user business_rep admin"`
	Status            *string `json:"status" validate:"omitempty,oneof=active disabled"`
	ManagedResourceID *string `json:"managed_resource_id" validate:"omitempty,mongodb"`
}

func parseManaged(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}

// storeError maps userstore validation failures onto 400s. It returns nil
// for errors that are not the caller's fault.
func storeError(err error) error {
	switch {
	case errors.Is(err, userstore.ErrBadRole):
		return apierr.Invalid(map[string]string{"role": err.Error()})
	case errors.Is(err, userstore.ErrBadStatus):
		return apierr.Invalid(map[string]string{"status": err.Error()})
	case errors.Is(err, userstore.ErrManagedResourceNeeded):
		return apierr.Invalid(map[string]string{"managed_resource_id": "is required for business_rep"})
	case errors.Is(err, resourcestore.ErrNotFound):
		return apierr.Invalid(map[string]string{"managed_resource_id": "resource does not exist"})
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return apierr.Conflict("an account with this email already exists")
	case errors.Is(err, userstore.ErrNotFound):
		return errUserNotFound
	}
	return nil
}
