package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string
	// RunMigrations applies embedded schema migrations on startup
	RunMigrations bool

	// Directory identity service (GoTrue-compatible)
	Directory DirectoryConfig

	// Access token validation
	Auth AuthConfig

	// Server
	Port          string
	CORSOrigins   []string
	Env           string
	PublicBaseURL string // Origin used for post-login redirects
	CookieSecure  bool

	// Coordinator
	RemoteTimeout    time.Duration
	NicknameDebounce time.Duration
	SessionIdleTTL   time.Duration

	// S3 Storage
	S3 S3Config
}

// DirectoryConfig holds the hosted identity service endpoint
type DirectoryConfig struct {
	AuthURL string // e.g. https://<project>.example.co/auth/v1
	APIKey  string
}

// AuthConfig holds access token validation settings.
// When JWTSecret is set tokens are verified with HS256, otherwise with the issuer's JWKS.
type AuthConfig struct {
	Issuer    string
	Audience  string
	JWTSecret string
	Algorithm string // JWKS signing algorithm, e.g. RS256 or ES256
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
	PublicBaseURL   string // Optional: CDN or endpoint prefix for public object URLs
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	remoteTimeout, err := getDuration("REMOTE_CALL_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	debounce, err := getDuration("NICKNAME_DEBOUNCE", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}
	idleTTL, err := getDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RunMigrations: getEnv("RUN_MIGRATIONS", "true") == "true",
		Directory: DirectoryConfig{
			AuthURL: strings.TrimRight(getEnv("DIRECTORY_AUTH_URL", ""), "/"),
			APIKey:  getEnv("DIRECTORY_API_KEY", ""),
		},
		Auth: AuthConfig{
			Issuer:    getEnv("AUTH_ISSUER", ""),
			Audience:  getEnv("AUTH_AUDIENCE", "authenticated"),
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Algorithm: getEnv("AUTH_JWT_ALGORITHM", "RS256"),
		},
		Port:             getEnv("PORT", "8080"),
		CORSOrigins:      strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:              getEnv("ENV", "development"),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		CookieSecure:     getEnv("COOKIE_SECURE", "false") == "true",
		RemoteTimeout:    remoteTimeout,
		NicknameDebounce: debounce,
		SessionIdleTTL:   idleTTL,
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "images"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
			PublicBaseURL:   strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		},
	}

	if cfg.Auth.Issuer == "" && cfg.Directory.AuthURL != "" {
		cfg.Auth.Issuer = cfg.Directory.AuthURL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Directory.AuthURL == "" {
		return fmt.Errorf("DIRECTORY_AUTH_URL is required")
	}
	if c.Directory.APIKey == "" {
		return fmt.Errorf("DIRECTORY_API_KEY is required")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_CALL_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}
