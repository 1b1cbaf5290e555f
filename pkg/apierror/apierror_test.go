package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := BadRequest("limit must be between 1 and 100", "500")
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "BAD_REQUEST: limit must be between 1 and 100 (500)", err.Error())

	wrapped := fmt.Errorf("list entries: %w", Unauthorized("invalid token"))
	var apiErr *APIError
	require.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
	assert.Equal(t, "UNAUTHORIZED: invalid token", apiErr.Error())

	var nilErr *APIError
	assert.Empty(t, nilErr.Error())
}
