package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dog-marker/internal/model"
	"dog-marker/pkg/apierror"
)

const AccessTokenType = "access"

// AuthService validates bearer tokens issued by the identity provider. The
// token subject is the user id; there is no local user store.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, apierror.Unauthorized("invalid token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != "" && typ != expectedType {
		return nil, apierror.Unauthorized("invalid token type")
	}

	subject, _ := claimsMap["sub"].(string)
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	claims := &model.AuthClaims{UserID: userID, Type: typ}
	claims.TokenID, _ = claimsMap["jti"].(string)
	return claims, nil
}

// IssueToken signs an access token for userID. Used by tooling and tests.
func (s *AuthService) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"typ": AccessTokenType,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}
