// Package coordinator holds the per-session state store: identity, profile,
// signup wizard progress and the liked-members mirror, kept in sync with the
// remote directory.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/metrics"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// LikePolicy selects how ToggleLiked orders the local flip and the remote write
type LikePolicy int

const (
	// LikeOptimistic flips the mirror immediately and rolls it back if the write fails
	LikeOptimistic LikePolicy = iota
	// LikePessimistic waits for the write before flipping the mirror
	LikePessimistic
)

// Default option values
const (
	DefaultRemoteTimeout    = 10 * time.Second
	DefaultNicknameDebounce = 300 * time.Millisecond
)

// Options tunes a Coordinator
type Options struct {
	RemoteTimeout    time.Duration
	NicknameDebounce time.Duration
	LikePolicy       LikePolicy
}

// Deps are the collaborators of a Coordinator
type Deps struct {
	Session   domain.SessionSource
	Profiles  domain.ProfileRepository
	Interests domain.InterestRepository
	Publisher websocket.EventPublisher // optional
	Metrics   metrics.Recorder         // optional
	Logger    zerolog.Logger
}

// Coordinator is the state store of one browser session.
// All mutations go through its operations; remote calls are made outside the state lock.
type Coordinator struct {
	mu    sync.Mutex
	state State

	session   domain.SessionSource
	profiles  domain.ProfileRepository
	interests domain.InterestRepository
	publisher websocket.EventPublisher
	metrics   metrics.Recorder
	logger    zerolog.Logger
	opts      Options

	fetches   singleflight.Group
	likeLocks keyedMutex
	nickname  *NicknameChecker
}

// New creates a Coordinator in its initial state
func New(deps Deps, opts Options) *Coordinator {
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	if opts.NicknameDebounce <= 0 {
		opts.NicknameDebounce = DefaultNicknameDebounce
	}
	if deps.Publisher == nil {
		deps.Publisher = &websocket.NoOpPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoOp{}
	}

	c := &Coordinator{
		state:     InitialState(),
		session:   deps.Session,
		profiles:  deps.Profiles,
		interests: deps.Interests,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "coordinator").Logger(),
		opts:      opts,
	}
	c.nickname = newNicknameChecker(c, opts.NicknameDebounce)
	return c
}

func (c *Coordinator) dispatch(a action) {
	c.mu.Lock()
	c.state = reduce(c.state, a)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Nickname returns the session's nickname availability checker
func (c *Coordinator) Nickname() *NicknameChecker {
	return c.nickname
}

func (c *Coordinator) sessionSource() domain.SessionSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// RebindAccessToken points the session source at a refreshed access token.
// Sources not bound to a token are left as they are.
func (c *Coordinator) RebindAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bound, ok := c.session.(domain.TokenBound); ok {
		c.session = bound.WithAccessToken(accessToken)
	}
}

func (c *Coordinator) publishNicknameResult(candidate string, availability domain.Availability) {
	identity, _, err := c.currentIdentity()
	if err != nil {
		return
	}
	c.publisher.Publish(identity.UserID, websocket.NicknameChecked(websocket.NicknamePayload{
		Nickname:     candidate,
		Availability: string(availability),
	}))
}

// currentIdentity returns the identity and epoch, or ErrUnauthorized when signed out
func (c *Coordinator) currentIdentity() (domain.Identity, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Identity == nil {
		return domain.Identity{}, 0, domain.ErrUnauthorized
	}
	return *c.state.Identity, c.state.epoch, nil
}

// call runs one remote operation with the loading flag raised, a bounded
// timeout and metrics. A deadline overrun is reported as domain.ErrTransient.
func (c *Coordinator) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	c.dispatch(loadingStarted{})
	defer c.dispatch(loadingFinished{})

	ctx, cancel := context.WithTimeout(ctx, c.opts.RemoteTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTransient) {
		err = fmt.Errorf("%w: %s timed out after %s: %v", domain.ErrTransient, op, c.opts.RemoteTimeout, err)
	}
	c.metrics.RecordRemoteCall(op, outcome(err), time.Since(start))
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrMemberNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNicknameTaken), errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		return "conflict"
	default:
		return "error"
	}
}

// RestoreSession loads the existing session, if any, then the profile and
// liked members. Failures are logged and leave the state at its defaults.
func (c *Coordinator) RestoreSession(ctx context.Context) {
	c.dispatch(loadingStarted{})
	defer c.dispatch(loadingFinished{})

	var identity *domain.Identity
	err := c.call(ctx, "get_session", func(ctx context.Context) error {
		var err error
		identity, err = c.sessionSource().GetSession(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to restore session")
		return
	}
	if identity == nil {
		c.logger.Debug().Msg("No session to restore")
		return
	}

	c.SetIdentity(*identity)
	if err := c.FetchProfile(ctx); err != nil {
		return
	}
	_ = c.FetchLikes(ctx)
}

// SetIdentity records the authenticated identity. Switching to another user drops the cached profile and likes.
func (c *Coordinator) SetIdentity(identity domain.Identity) {
	c.dispatch(identitySet{identity: identity})
}

// ClearIdentity resets identity, profile and liked members. It is idempotent.
func (c *Coordinator) ClearIdentity() {
	c.dispatch(identityCleared{})
	c.nickname.Stop()
}

// FetchProfile loads the profile of the current identity at most once.
// It is a no-op when signed out or when the profile is cached; concurrent
// callers share a single remote query. A missing row is not an error.
func (c *Coordinator) FetchProfile(ctx context.Context) error {
	identity, epoch, err := c.currentIdentity()
	if err != nil {
		return nil
	}
	if c.Snapshot().Profile != nil {
		return nil
	}

	key := fmt.Sprintf("%s/%d", identity.UserID, epoch)
	_, err, _ = c.fetches.Do(key, func() (any, error) {
		// A caller arriving after the previous flight landed finds the cache filled
		if c.hasProfile(epoch) {
			return nil, nil
		}

		var profile *domain.Profile
		err := c.call(context.WithoutCancel(ctx), "fetch_profile", func(ctx context.Context) error {
			var err error
			profile, err = c.profiles.GetByUserID(ctx, identity.UserID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, domain.ErrProfileNotFound
		}
		c.dispatch(profileLoaded{profile: *profile, epoch: epoch})
		return nil, nil
	})

	if errors.Is(err, domain.ErrProfileNotFound) {
		c.logger.Debug().Str("user_id", identity.UserID).Msg("No profile yet")
		return nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("Failed to fetch profile")
		return err
	}
	return nil
}

func (c *Coordinator) hasProfile(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.epoch == epoch && c.state.Profile != nil
}

// InvalidateProfile drops the cached profile so the next FetchProfile queries again
func (c *Coordinator) InvalidateProfile() {
	c.dispatch(profileInvalidated{})
}

// RefreshProfile refetches the profile, picking up changes made outside this session
func (c *Coordinator) RefreshProfile(ctx context.Context) error {
	c.InvalidateProfile()
	return c.FetchProfile(ctx)
}

// UpdateProfile persists a partial profile and merges it into the cached
// profile once the write succeeded. The cache is untouched on failure.
func (c *Coordinator) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) error {
	identity, epoch, err := c.currentIdentity()
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	if patch.Nickname != nil && !c.isOwnNickname(*patch.Nickname) {
		availability, err := c.nickname.Check(ctx, *patch.Nickname)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Nickname check failed")
			return err
		}
		if availability == domain.AvailabilityTaken {
			return domain.ErrNicknameTaken
		}
	}

	return c.persistProfile(ctx, identity, epoch, patch)
}

// persistProfile writes patch and merges it into the cache on success
func (c *Coordinator) persistProfile(ctx context.Context, identity domain.Identity, epoch uint64, patch domain.ProfilePatch) error {
	err := c.call(ctx, "update_profile", func(ctx context.Context) error {
		return c.profiles.Update(ctx, identity.UserID, patch)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("Failed to update profile")
		return err
	}

	c.dispatch(profileMerged{patch: patch, epoch: epoch})
	if profile := c.Snapshot().Profile; profile != nil {
		c.publisher.Publish(identity.UserID, websocket.ProfileUpdated(profile))
	}
	return nil
}

func (c *Coordinator) isOwnNickname(nickname string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Profile != nil && c.state.Profile.Nickname == nickname
}

// SetField sets one signup wizard field. Unknown names yield domain.ErrUnknownField.
func (c *Coordinator) SetField(field domain.WizardField, value string) error {
	if _, err := domain.NewWizardState().WithField(field, value); err != nil {
		return err
	}
	c.dispatch(wizardFieldSet{field: field, value: value})
	return nil
}

// SetJobTitle sets the wizard job title
func (c *Coordinator) SetJobTitle(v string) {
	c.dispatch(wizardFieldSet{field: domain.FieldJobTitle, value: v})
}

// SetExperience sets the wizard experience level
func (c *Coordinator) SetExperience(v string) {
	c.dispatch(wizardFieldSet{field: domain.FieldExperience, value: v})
}

// SetNickname sets the wizard nickname
func (c *Coordinator) SetNickname(v string) {
	c.dispatch(wizardFieldSet{field: domain.FieldNickname, value: v})
}

// SetBlog sets the wizard portfolio URL
func (c *Coordinator) SetBlog(v string) {
	c.dispatch(wizardFieldSet{field: domain.FieldBlog, value: v})
}

// SetProfileImageURL sets the wizard profile image URL
func (c *Coordinator) SetProfileImageURL(v string) {
	c.dispatch(wizardFieldSet{field: domain.FieldProfileImageURL, value: v})
}

// AdvanceStep moves the wizard forward
func (c *Coordinator) AdvanceStep() {
	c.dispatch(wizardAdvanced{})
}

// RetreatStep moves the wizard back, never below step 1
func (c *Coordinator) RetreatStep() {
	c.dispatch(wizardRetreated{})
}

// ResetWizard returns the wizard to step 1 with empty fields
func (c *Coordinator) ResetWizard() {
	c.dispatch(wizardReset{})
}

// Logout signs out remotely, then clears identity and wizard state.
// A remote failure is logged; local state is cleared regardless.
func (c *Coordinator) Logout(ctx context.Context) {
	identity, _, err := c.currentIdentity()

	if signOutErr := c.call(ctx, "sign_out", c.sessionSource().SignOut); signOutErr != nil {
		c.logger.Warn().Err(signOutErr).Msg("Remote sign out failed")
	}
	if err == nil {
		c.publisher.Publish(identity.UserID, websocket.SessionEnded())
	}

	c.ClearIdentity()
	c.ResetWizard()
}
