package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eduplatform/internal/model"
)

// AuthService validates tokens issued by the account service. Issuing is
// kept for the seed tool and tests.
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
		tokenTTL:  tokenTTL,
	}
}

// IssueToken signs an HS256 token for the identity
func (s *AuthService) IssueToken(identity model.Identity) (string, error) {
	now := time.Now()
	claims := &model.Claims{
		ID:   identity.ID,
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses a token and returns the caller identity
func (s *AuthService) ValidateToken(tokenString string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return model.Identity{}, ErrInvalidToken
	}

	return claims.Identity(), nil
}
