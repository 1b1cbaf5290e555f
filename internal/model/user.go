package model

import "github.com/google/uuid"

// AuthClaims is what the token validator extracts from a bearer token.
type AuthClaims struct {
	UserID  uuid.UUID `json:"sub"`
	Type    string    `json:"typ"`
	TokenID string    `json:"jti"`
}
