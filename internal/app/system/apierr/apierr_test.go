package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{BadRequest("bad"), http.StatusBadRequest, CodeBadRequest},
		{Invalid(map[string]string{"name": "is required"}), http.StatusBadRequest, CodeValidation},
		{Unauthorized(""), http.StatusUnauthorized, CodeUnauthorized},
		{Forbidden(""), http.StatusForbidden, CodeForbidden},
		{NotFound(""), http.StatusNotFound, CodeNotFound},
		{Conflict("dup"), http.StatusConflict, CodeConflict},
		{TooManyRequests("slow down"), http.StatusTooManyRequests, CodeTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError, CodeInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, c.err.Status, c.code)
		assert.Equal(t, c.code, c.err.Code)
		assert.NotEmpty(t, c.err.Message)
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	e := Internal(cause)
	assert.Equal(t, "internal server error", e.Message)
	assert.ErrorIs(t, e, cause)
}

func TestFrom(t *testing.T) {
	nf := NotFound("resource not found")
	wrapped := fmt.Errorf("loading: %w", nf)
	assert.Same(t, nf, From(wrapped))

	plain := errors.New("plain")
	got := From(plain)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.ErrorIs(t, got, plain)
}
