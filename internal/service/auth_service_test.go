package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_ValidateToken(t *testing.T) {
	svc := NewAuthService("secret")
	userID := uuid.New()

	t.Run("issued token round trips", func(t *testing.T) {
		token, err := svc.IssueToken(userID, time.Minute)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token, AccessTokenType)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, AccessTokenType, claims.Type)
		assert.NotEmpty(t, claims.TokenID)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.IssueToken(userID, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token, AccessTokenType)
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewAuthService("other").IssueToken(userID, time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token, AccessTokenType)
		require.Error(t, err)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": userID.String(), "typ": "refresh",
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(token, AccessTokenType)
		require.Error(t, err)
	})

	t.Run("subject must be a user id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "admin",
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(token, AccessTokenType)
		require.Error(t, err)
	})
}
