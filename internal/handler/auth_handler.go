package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// PKCECookieName carries the code verifier between login and callback
	PKCECookieName = "gh_pkce"

	// RefreshCookieName carries the refresh token of a browser session
	RefreshCookieName = "gh_refresh"

	// CallbackPath is where the identity service sends the browser back
	CallbackPath = "/auth/callback"

	DefaultOAuthProvider = "google"
	pkceCookieMaxAge     = 10 * time.Minute
	refreshCookieMaxAge  = 30 * 24 * time.Hour
)

// AuthHandler handles the OAuth sign-in round trip and logout
type AuthHandler struct {
	auth          domain.AuthClient
	provisioner   *service.ProvisionService
	sessions      middleware.SessionProvider
	publicBaseURL string
	cookieSecure  bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth domain.AuthClient, provisioner *service.ProvisionService, sessions middleware.SessionProvider, publicBaseURL string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		provisioner:   provisioner,
		sessions:      sessions,
		publicBaseURL: publicBaseURL,
		cookieSecure:  cookieSecure,
	}
}

func (h *AuthHandler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func callbackURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host + CallbackPath
}

// Login handles GET /auth/login?provider=
func (h *AuthHandler) Login(c echo.Context) error {
	provider := c.QueryParam("provider")
	if provider == "" {
		provider = DefaultOAuthProvider
	}

	verifier := oauth2.GenerateVerifier()
	c.SetCookie(h.cookie(PKCECookieName, verifier, pkceCookieMaxAge))

	url := h.auth.AuthorizeURL(provider, callbackURL(c), verifier)
	return c.Redirect(http.StatusFound, url)
}

// Callback handles GET /auth/callback?code=
func (h *AuthHandler) Callback(c echo.Context) error {
	var verifier string
	if cookie, err := c.Cookie(PKCECookieName); err == nil {
		verifier = cookie.Value
	}
	c.SetCookie(h.cookie(PKCECookieName, "", -time.Second))

	result := h.provisioner.HandleCallback(c.Request().Context(), c.QueryParam("code"), verifier)
	if result.Session != nil {
		h.setSessionCookies(c, result.Session)
	}

	log.Info().
		Str("redirect", result.Redirect).
		Bool("created", result.Created).
		Msg("Auth callback handled")

	return c.Redirect(http.StatusFound, h.publicBaseURL+result.Redirect)
}

func (h *AuthHandler) setSessionCookies(c echo.Context, session *domain.Session) {
	maxAge := time.Until(session.ExpiresAt)
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	c.SetCookie(h.cookie(middleware.SessionCookieName, session.AccessToken, maxAge))
	if session.RefreshToken != "" {
		c.SetCookie(h.cookie(RefreshCookieName, session.RefreshToken, refreshCookieMaxAge))
	}
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	c.SetCookie(h.cookie(middleware.SessionCookieName, "", -time.Second))
	c.SetCookie(h.cookie(RefreshCookieName, "", -time.Second))
}

// RefreshResponse describes a refreshed session
type RefreshResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// Refresh handles POST /auth/refresh. It trades the refresh cookie for a new
// access token and moves the live session (wizard progress, liked members)
// over to it. The expired access token may still be presented so its session
// can be found.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return NewUnauthorizedError(c, "No session to refresh")
	}

	session, err := h.auth.RefreshSession(c.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.clearSessionCookies(c)
			return NewUnauthorizedError(c, "Session expired, please sign in again")
		}
		return respondError(c, err, "Failed to refresh session")
	}

	if previous := middleware.TokenFromRequest(c); previous != "" && h.sessions != nil {
		h.sessions.Rekey(previous, session.AccessToken)
	}
	h.setSessionCookies(c, session)

	log.Debug().Str("user_id", session.Identity.UserID).Msg("Session refreshed")
	return c.JSON(http.StatusOK, RefreshResponse{ExpiresAt: session.ExpiresAt})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	coord.Logout(c.Request().Context())
	if token := middleware.GetAccessToken(c); token != "" && h.sessions != nil {
		h.sessions.Remove(token)
	}
	h.clearSessionCookies(c)

	log.Info().Str("user_id", middleware.GetUserID(c)).Msg("User logged out")
	return c.NoContent(http.StatusNoContent)
}
