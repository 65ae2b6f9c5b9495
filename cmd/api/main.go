package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/config"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/coordinator"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/database"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/directory"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/handler"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/metrics"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/repository/postgres"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/repository/storage"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/service"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	sessionSweepInterval = time.Minute
	nicknameChecksPerMin = 60
	likeTogglesPerMin    = 30
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Apply schema migrations
	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Connect to database
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Initialize repositories
	profileRepo := postgres.NewProfileRepository(pool)
	interestRepo := postgres.NewInterestRepository(pool)

	// Image storage is optional; uploads are disabled without it
	var blobRepo storage.BlobRepository
	if cfg.S3.Bucket != "" {
		s3Repo, err := storage.NewS3BlobRepository(ctx, cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 storage unavailable, image uploads disabled")
		} else {
			blobRepo = s3Repo
		}
	}

	// Remote directory identity service
	authClient := directory.NewAuthClient(cfg.Directory.AuthURL, cfg.Directory.APIKey, nil)

	// WebSocket hub
	hub := websocket.NewHub()

	// One Coordinator per browser session
	sessions := coordinator.NewRegistry(func(accessToken string) *coordinator.Coordinator {
		return coordinator.New(coordinator.Deps{
			Session:   domain.TokenSession{Client: authClient, AccessToken: accessToken},
			Profiles:  profileRepo,
			Interests: interestRepo,
			Publisher: hub,
			Metrics:   collector,
			Logger:    log.Logger,
		}, coordinator.Options{
			RemoteTimeout:    cfg.RemoteTimeout,
			NicknameDebounce: cfg.NicknameDebounce,
			LikePolicy:       coordinator.LikeOptimistic,
		})
	}, cfg.SessionIdleTTL, collector, log.Logger)
	go sessions.Run(ctx, sessionSweepInterval)

	// Initialize services
	provisionService := service.NewProvisionService(authClient, profileRepo)
	directoryService := service.NewDirectoryService(profileRepo)
	imageService := service.NewImageService(blobRepo)

	// Initialize auth middleware
	jwtValidator, err := middleware.NewJWTValidator(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token validator")
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtValidator, sessions)

	// Rate limiters
	nicknameLimiter := middleware.NewRateLimiterWithConfig(nicknameChecksPerMin, 10)
	defer nicknameLimiter.Stop()
	likeLimiter := middleware.NewRateLimiterWithConfig(likeTogglesPerMin, 5)
	defer likeLimiter.Stop()

	// Initialize handlers
	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authClient, provisionService, sessions, cfg.PublicBaseURL, cfg.CookieSecure),
		Session:   handler.NewSessionHandler(),
		Profile:   handler.NewProfileHandler(),
		Image:     handler.NewImageHandler(imageService),
		Signup:    handler.NewSignupHandler(),
		Nickname:  handler.NewNicknameHandler(),
		Like:      handler.NewLikeHandler(),
		Directory: handler.NewDirectoryHandler(directoryService),
		WebSocket: handler.NewWebSocketHandler(hub, websocket.NewJWTValidator(jwtValidator), cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Status code metrics
	e.Use(middleware.Metrics(collector))

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Body size limit (image uploads are the largest requests)
	e.Use(echomiddleware.BodyLimit("6M"))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(registry)))

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, handlers, handler.RateLimiters{
		Nickname: nicknameLimiter,
		Like:     likeLimiter,
	})

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("user_id", middleware.GetUserID(c)).
				Msg("request")

			return nil
		}
	}
}
