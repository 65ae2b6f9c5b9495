// Package directory is the HTTP client for the hosted identity service that
// fronts the member directory. It speaks the GoTrue REST dialect.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"golang.org/x/oauth2"
)

// AuthClient implements domain.AuthClient over the identity service REST API.
// The PKCE authorize, code exchange and refresh legs go through x/oauth2.
type AuthClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	oauth      *oauth2.Config
}

// NewAuthClient creates an AuthClient. httpClient may be nil.
func NewAuthClient(baseURL, apiKey string, httpClient *http.Client) *AuthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &AuthClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				AuthURL:   baseURL + "/authorize",
				TokenURL:  baseURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName  string `json:"full_name"`
		Name      string `json:"name"`
		Nickname  string `json:"nickname"`
		AvatarURL string `json:"avatar_url"`
		Picture   string `json:"picture"`
	} `json:"user_metadata"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

// AuthorizeURL returns the provider sign-in URL using the PKCE flow
func (c *AuthClient) AuthorizeURL(provider, redirectTo, codeVerifier string) string {
	return c.oauth.AuthCodeURL("",
		oauth2.SetAuthURLParam("provider", provider),
		oauth2.SetAuthURLParam("redirect_to", redirectTo),
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

// ExchangeCodeForSession trades a PKCE auth code for a session
func (c *AuthClient) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*domain.Session, error) {
	token, err := c.oauth.Exchange(c.tokenContext(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", tokenError(err))
	}
	return toSession(token)
}

// RefreshSession trades a refresh token for a new session. GoTrue rotates
// refresh tokens, so the returned session carries a new one.
func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh token", domain.ErrUnauthorized)
	}
	token, err := c.oauth.TokenSource(c.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		err = tokenError(err)
		// A rejected refresh token means the session is over
		if errors.Is(err, domain.ErrInvalidInput) {
			err = fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("session refresh failed: %w", err)
	}
	return toSession(token)
}

// tokenContext hands x/oauth2 a client that speaks GoTrue's token dialect
func (c *AuthClient) tokenContext(ctx context.Context) context.Context {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: &tokenTransport{apiKey: c.apiKey, base: base},
		Timeout:   c.httpClient.Timeout,
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// tokenError maps x/oauth2 failures onto domain errors
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return statusError(retrieveErr.Response.StatusCode, retrieveErr.Body)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}

func toSession(token *oauth2.Token) (*domain.Session, error) {
	var user userResponse
	if raw, err := json.Marshal(token.Extra("user")); err == nil {
		_ = json.Unmarshal(raw, &user)
	}
	if user.ID == "" {
		return nil, errors.New("empty user in token response")
	}

	expiresAt := token.Expiry
	if at, ok := token.Extra("expires_at").(float64); ok && at > 0 {
		expiresAt = time.Unix(int64(at), 0)
	}

	return &domain.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		Identity:     user.toIdentity(),
	}, nil
}

// GetUser resolves the identity behind an access token.
// An expired or revoked token yields domain.ErrUnauthorized.
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.New("empty user id in response")
	}
	identity := resp.toIdentity()
	return &identity, nil
}

// SignOut revokes the session behind an access token
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil)
	if errors.Is(err, domain.ErrUnauthorized) {
		// Already signed out
		return nil
	}
	return err
}

func (c *AuthClient) do(ctx context.Context, method, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func statusError(status int, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	msg := body.ErrorDescription
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d: %s", domain.ErrTransient, status, msg)
	default:
		return fmt.Errorf("identity service returned status %d: %s", status, msg)
	}
}

func (u userResponse) toIdentity() domain.Identity {
	name := u.UserMetadata.FullName
	if name == "" {
		name = u.UserMetadata.Name
	}
	if name == "" {
		name = u.UserMetadata.Nickname
	}
	avatar := u.UserMetadata.AvatarURL
	if avatar == "" {
		avatar = u.UserMetadata.Picture
	}
	return domain.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		FullName:  name,
		AvatarURL: avatar,
	}
}

var _ domain.AuthClient = (*AuthClient)(nil)
