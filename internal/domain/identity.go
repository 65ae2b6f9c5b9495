package domain

import (
	"context"
	"time"
)

// Identity is the authenticated principal returned by the directory identity service
type Identity struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Session is an authenticated session issued by the identity service
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Identity     Identity  `json:"identity"`
}

// AuthClient defines the identity operations of the remote directory service
type AuthClient interface {
	// AuthorizeURL returns the provider sign-in URL that resumes at redirectTo with an exchange code
	AuthorizeURL(provider, redirectTo, codeVerifier string) string
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error)
	// RefreshSession trades a refresh token for a new session. A rejected token yields ErrUnauthorized.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SessionSource is the identity view of a single browser session.
// GetSession returns (nil, nil) when there is no session.
type SessionSource interface {
	GetSession(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error
}

// TokenBound is a SessionSource tied to one access token that can follow the session to a refreshed token
type TokenBound interface {
	SessionSource
	WithAccessToken(accessToken string) SessionSource
}

// TokenSession binds an AuthClient to one access token
type TokenSession struct {
	Client      AuthClient
	AccessToken string
}

// GetSession implements SessionSource
func (s TokenSession) GetSession(ctx context.Context) (*Identity, error) {
	if s.AccessToken == "" {
		return nil, nil
	}
	return s.Client.GetUser(ctx, s.AccessToken)
}

// SignOut implements SessionSource
func (s TokenSession) SignOut(ctx context.Context) error {
	if s.AccessToken == "" {
		return nil
	}
	return s.Client.SignOut(ctx, s.AccessToken)
}

// WithAccessToken implements TokenBound
func (s TokenSession) WithAccessToken(accessToken string) SessionSource {
	return TokenSession{Client: s.Client, AccessToken: accessToken}
}
