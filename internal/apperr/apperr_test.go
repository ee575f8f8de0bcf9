package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotAuthenticated("getActiveSession"))

	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.True(t, IsAuth(err))
	assert.Contains(t, err.Error(), "getActiveSession")

	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, KindNotAuthenticated, ae.Kind)
}

func TestStore_WrapsOnce(t *testing.T) {
	cause := errors.New("duplicate key")

	err := Store("insert session", "23505", cause)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindStoreRejected, pe.Kind)
	assert.Equal(t, "23505", pe.Code)
	assert.Equal(t, "duplicate key", pe.Message)
	assert.ErrorIs(t, err, cause)

	again := Store("outer", "", err)
	assert.Same(t, err, again, "already wrapped errors pass through unchanged")
}

func TestStore_NilCause(t *testing.T) {
	assert.NoError(t, Store("op", "", nil))
}

func TestNoRows(t *testing.T) {
	err := NoRows("get preferences", "preferences")

	assert.True(t, IsNoRows(err))
	assert.False(t, IsNoRows(errors.New("other")))
	assert.False(t, IsNoRows(Store("op", "XX000", errors.New("boom"))))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"auth", NotAuthenticated("op"), http.StatusUnauthorized},
		{"validation", Invalid("latitude", "out of range"), http.StatusBadRequest},
		{"no rows", NoRows("op", "session"), http.StatusNotFound},
		{"store", Store("op", "", errors.New("down")), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
