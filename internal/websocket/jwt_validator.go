package websocket

import (
	"context"
	"errors"

	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator resolves the member behind an access token
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (userID string, err error)
}

// JWTValidator validates access tokens for WebSocket connections
type JWTValidator struct {
	validator *validator.Validator
}

// NewJWTValidator creates a JWTValidator around a configured go-jwt-middleware validator
func NewJWTValidator(v *validator.Validator) *JWTValidator {
	return &JWTValidator{validator: v}
}

// ValidateToken validates a JWT token and returns its subject (the member's user ID)
func (v *JWTValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return "", ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	userID := validatedClaims.RegisteredClaims.Subject
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

var _ TokenValidator = (*JWTValidator)(nil)
