package handler

import (
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Auth      *AuthHandler
	Session   *SessionHandler
	Profile   *ProfileHandler
	Image     *ImageHandler
	Signup    *SignupHandler
	Nickname  *NicknameHandler
	Like      *LikeHandler
	Directory *DirectoryHandler
	WebSocket *WebSocketHandler
}

// RateLimiters throttle the endpoints that hit the remote directory per keystroke or click
type RateLimiters struct {
	Nickname *middleware.RateLimiter
	Like     *middleware.RateLimiter
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, h Handlers, limits RateLimiters) {
	// OAuth round trip (public)
	auth := e.Group("/auth")
	auth.GET("/login", h.Auth.Login)
	auth.GET("/callback", h.Auth.Callback)
	auth.POST("/refresh", h.Auth.Refresh)

	// Hub directory (public)
	e.GET("/api/gatherHub", h.Directory.List)

	// WebSocket (authenticates its own handshake)
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1 (protected)
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())

	api.GET("/me", h.Session.Me)
	api.POST("/auth/logout", h.Auth.Logout)

	profile := api.Group("/profile")
	profile.PATCH("", h.Profile.UpdateProfile)
	profile.POST("/refresh", h.Profile.RefreshProfile)
	profile.POST("/images/:kind", h.Image.UploadImage)

	api.GET("/nickname/check", h.Nickname.Check, rateLimited(limits.Nickname)...)

	signup := api.Group("/signup")
	signup.PUT("/fields/:field", h.Signup.SetField)
	signup.POST("/next", h.Signup.Next)
	signup.POST("/prev", h.Signup.Prev)
	signup.POST("/reset", h.Signup.Reset)
	signup.POST("/submit", h.Signup.Submit)

	likes := api.Group("/likes")
	likes.GET("", h.Like.List)
	likes.POST("/:nickname/toggle", h.Like.Toggle, rateLimited(limits.Like)...)
}

func rateLimited(rl *middleware.RateLimiter) []echo.MiddlewareFunc {
	if rl == nil {
		return nil
	}
	return []echo.MiddlewareFunc{middleware.RateLimitMiddleware(rl)}
}
