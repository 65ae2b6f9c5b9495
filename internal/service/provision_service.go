package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// Post-login redirect targets
const (
	RedirectSignup    = "/signup"
	RedirectRoot      = "/"
	RedirectAuthError = "/auth/auth-code-error"
)

// ProvisionService turns an OAuth exchange code into a session and makes
// sure the member has a profile row
type ProvisionService struct {
	auth     domain.AuthClient
	profiles domain.ProfileRepository
}

// NewProvisionService creates a new ProvisionService
func NewProvisionService(auth domain.AuthClient, profiles domain.ProfileRepository) *ProvisionService {
	return &ProvisionService{
		auth:     auth,
		profiles: profiles,
	}
}

// CallbackResult is the outcome of an OAuth callback
type CallbackResult struct {
	Session  *domain.Session // nil when the exchange failed
	Redirect string
	Created  bool
}

// HandleCallback exchanges code for a session. A member without a profile
// gets the default one and is sent to the signup wizard, an existing member
// goes to the application root. Persistence errors redirect to the auth
// error page; a missing code or failed exchange falls through to signup.
func (s *ProvisionService) HandleCallback(ctx context.Context, code, codeVerifier string) CallbackResult {
	if code == "" {
		log.Warn().Msg("No code found in the callback request")
		return CallbackResult{Redirect: RedirectSignup}
	}

	session, err := s.auth.ExchangeCodeForSession(ctx, code, codeVerifier)
	if err != nil || session == nil {
		log.Error().Err(err).Msg("Failed to exchange code for session")
		return CallbackResult{Redirect: RedirectSignup}
	}
	identity := session.Identity

	exists, err := s.profiles.Exists(ctx, identity.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID).Msg("Failed to look up profile")
		return CallbackResult{Session: session, Redirect: RedirectAuthError}
	}
	if exists {
		log.Info().Str("user_id", identity.UserID).Msg("Existing member signed in")
		return CallbackResult{Session: session, Redirect: RedirectRoot}
	}

	if err := s.Provision(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent callback for the same member won the insert
			return CallbackResult{Session: session, Redirect: RedirectRoot}
		}
		log.Error().Err(err).Str("user_id", identity.UserID).Msg("Failed to create profile")
		return CallbackResult{Session: session, Redirect: RedirectAuthError}
	}

	log.Info().Str("user_id", identity.UserID).Msg("Created profile for new member")
	return CallbackResult{Session: session, Redirect: RedirectSignup, Created: true}
}

// Provision inserts the default profile for identity. When the derived
// placeholder nickname is already held by someone else, it retries once
// with a suffix taken from the user ID.
func (s *ProvisionService) Provision(ctx context.Context, identity domain.Identity) error {
	profile := domain.DefaultProfile(identity)
	err := s.profiles.Insert(ctx, &profile)
	if !errors.Is(err, domain.ErrNicknameTaken) {
		return err
	}

	profile.Nickname = placeholderNickname(profile.Nickname, identity.UserID)
	log.Debug().Str("user_id", identity.UserID).Str("nickname", profile.Nickname).Msg("Placeholder nickname taken, retrying")
	if err := s.profiles.Insert(ctx, &profile); err != nil {
		return fmt.Errorf("insert default profile: %w", err)
	}
	return nil
}

func placeholderNickname(nickname, userID string) string {
	suffix := strings.ReplaceAll(userID, "-", "")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return nickname + "_" + suffix
}
