package middleware

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/config"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/coordinator"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SessionCookieName holds the access token of a browser session
const SessionCookieName = "gh_session"

// CustomClaims contains the custom claims of an identity service access token
type CustomClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// UserIDKey is the context key for the member's user ID (subject)
	UserIDKey contextKey = "user_id"
	// AccessTokenKey is the context key for the raw access token
	AccessTokenKey contextKey = "access_token"
	// CoordinatorKey is the context key for the session's Coordinator
	CoordinatorKey contextKey = "coordinator"
)

// SessionProvider hands out the Coordinator of a browser session
type SessionProvider interface {
	Get(ctx context.Context, accessToken string) *coordinator.Coordinator
	Remove(accessToken string)
	// Rekey moves a live session to the access token it was refreshed to
	Rekey(oldToken, newToken string) bool
}

// NewJWTValidator builds the access token validator. A shared secret selects
// HS256; otherwise keys come from the issuer's JWKS endpoint.
func NewJWTValidator(cfg config.AuthConfig) (*validator.Validator, error) {
	issuerURL, err := url.Parse(cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("parse issuer: %w", err)
	}

	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}
	algorithm := validator.HS256
	if cfg.JWTSecret == "" {
		jwksURL := issuerURL.JoinPath(".well-known", "jwks.json")
		provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute, jwks.WithCustomJWKSURI(jwksURL))
		keyFunc = provider.KeyFunc
		algorithm = validator.SignatureAlgorithm(cfg.Algorithm)
	}

	return validator.New(
		keyFunc,
		algorithm,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// AuthMiddleware validates access tokens and attaches the session's Coordinator
type AuthMiddleware struct {
	validator *validator.Validator
	sessions  SessionProvider
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(v *validator.Validator, sessions SessionProvider) *AuthMiddleware {
	return &AuthMiddleware{
		validator: v,
		sessions:  sessions,
	}
}

// TokenFromRequest returns the bearer token, falling back to the session cookie
func TokenFromRequest(c echo.Context) string {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate returns an Echo middleware that validates the access token and
// resolves the session's Coordinator. A session whose identity cannot be
// restored is dropped.
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return unauthorizedError(c, "missing access token")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok || validatedClaims.RegisteredClaims.Subject == "" {
				return unauthorizedError(c, "invalid claims")
			}
			userID := validatedClaims.RegisteredClaims.Subject

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, AccessTokenKey, token)

			if m.sessions != nil {
				coord := m.sessions.Get(ctx, token)
				identity := coord.Snapshot().Identity
				if identity == nil || identity.UserID != userID {
					m.sessions.Remove(token)
					log.Debug().Str("user_id", userID).Msg("Session could not be restored")
					return unauthorizedError(c, "session expired")
				}
				ctx = context.WithValue(ctx, CoordinatorKey, coord)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetUserID extracts the member's user ID from the context
func GetUserID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetAccessToken extracts the raw access token from the context
func GetAccessToken(c echo.Context) string {
	if token, ok := c.Request().Context().Value(AccessTokenKey).(string); ok {
		return token
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCoordinator extracts the session's Coordinator from the context
func GetCoordinator(c echo.Context) *coordinator.Coordinator {
	if coord, ok := c.Request().Context().Value(CoordinatorKey).(*coordinator.Coordinator); ok {
		return coord
	}
	return nil
}
