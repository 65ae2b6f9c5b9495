package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreSession_LoadsIdentityProfileAndLikes(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.interests.Likes["u-alice"] = []string{"u-bob"}

	env.coord.RestoreSession(context.Background())

	snap := env.coord.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u-alice", snap.Identity.UserID)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "alice", snap.Profile.Nickname)
	assert.Equal(t, map[string]bool{"bob": true}, snap.Liked)
	assert.False(t, snap.Loading)
}

func TestRestoreSession_Failures(t *testing.T) {
	tests := []struct {
		name     string
		identity *domain.Identity
		err      error
	}{
		{"no session", nil, nil},
		{"remote failure", nil, domain.ErrTransient},
		{"expired token", nil, domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.session.Identity = tt.identity
			env.session.Err = tt.err

			env.coord.RestoreSession(context.Background())

			snap := env.coord.Snapshot()
			assert.Nil(t, snap.Identity)
			assert.Nil(t, snap.Profile)
			assert.Empty(t, snap.Liked)
			assert.False(t, snap.Loading)
			assert.Equal(t, 0, env.profiles.CallCount("GetByUserID"))
		})
	}
}

func TestRestoreSession_MissingProfileIsNotAnError(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.session.Identity = &domain.Identity{UserID: "u-new", Email: "new@example.com"}

	env.coord.RestoreSession(context.Background())

	snap := env.coord.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestFetchProfile_SignedOutIsNoOp(t *testing.T) {
	env := newTestEnv(t, Options{})

	require.NoError(t, env.coord.FetchProfile(context.Background()))
	assert.Equal(t, 0, env.profiles.CallCount("GetByUserID"))
}

func TestFetchProfile_CachedIsNoOp(t *testing.T) {
	env := signedIn(t, Options{})

	require.NoError(t, env.coord.FetchProfile(context.Background()))
	require.NoError(t, env.coord.FetchProfile(context.Background()))
	assert.Equal(t, 1, env.profiles.CallCount("GetByUserID"))
}

func TestFetchProfile_OverlappingCallsIssueOneQuery(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.coord.SetIdentity(aliceIdentity)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.profiles.GetByUserIDFn = func(ctx context.Context, userID string) (*domain.Profile, error) {
		once.Do(func() { close(entered) })
		<-release
		p := aliceProfile
		return &p, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.coord.FetchProfile(context.Background())
		}()
	}

	<-entered
	assert.True(t, env.coord.Snapshot().Loading, "loading is raised while the query runs")
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, env.profiles.CallCount("GetByUserID"))
	snap := env.coord.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "alice", snap.Profile.Nickname)
	assert.False(t, snap.Loading)
}

func TestFetchProfile_DropsResultForPreviousIdentity(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.coord.SetIdentity(aliceIdentity)

	entered := make(chan struct{})
	release := make(chan struct{})
	env.profiles.GetByUserIDFn = func(ctx context.Context, userID string) (*domain.Profile, error) {
		if userID == "u-alice" {
			close(entered)
			<-release
		}
		p := aliceProfile
		p.UserID = userID
		return &p, nil
	}

	done := make(chan error)
	go func() { done <- env.coord.FetchProfile(context.Background()) }()

	<-entered
	env.coord.SetIdentity(domain.Identity{UserID: "u-bob", Email: "bob@example.com"})
	close(release)
	require.NoError(t, <-done)

	assert.Nil(t, env.coord.Snapshot().Profile, "alice's profile must not land in bob's session")
}

func TestFetchProfile_TimeoutIsTransient(t *testing.T) {
	env := newTestEnv(t, Options{RemoteTimeout: 20 * time.Millisecond})
	env.coord.SetIdentity(aliceIdentity)
	env.profiles.GetByUserIDFn = func(ctx context.Context, userID string) (*domain.Profile, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	err := env.coord.FetchProfile(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	snap := env.coord.Snapshot()
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestRefreshProfile_PicksUpRemoteChanges(t *testing.T) {
	env := signedIn(t, Options{})

	updated := aliceProfile
	updated.JobTitle = "데브옵스"
	env.profiles.AddProfile(updated)

	require.NoError(t, env.coord.RefreshProfile(context.Background()))

	assert.Equal(t, "데브옵스", env.coord.Snapshot().Profile.JobTitle)
	assert.Equal(t, 2, env.profiles.CallCount("GetByUserID"))
}

func TestUpdateProfile_MergesAfterWrite(t *testing.T) {
	env := signedIn(t, Options{})

	err := env.coord.UpdateProfile(context.Background(), domain.ProfilePatch{
		Description: strPtr("hello"),
		TechStacks:  &[]string{"go", "postgres"},
	})
	require.NoError(t, err)

	snap := env.coord.Snapshot()
	assert.Equal(t, "hello", snap.Profile.Description)
	assert.Equal(t, []string{"go", "postgres"}, snap.Profile.TechStacks)
	assert.Equal(t, "alice", snap.Profile.Nickname)

	stored, _ := env.profiles.Get("u-alice")
	assert.Equal(t, "hello", stored.Description)

	events := env.publisher.For("u-alice")
	require.Len(t, events, 1)
	assert.Equal(t, "profile.updated", events[0].Type)
}

func TestUpdateProfile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		patch   domain.ProfilePatch
		setup   func(env *testEnv)
		wantErr error
	}{
		{
			name:    "nickname owned by another member",
			patch:   domain.ProfilePatch{Nickname: strPtr("bob")},
			wantErr: domain.ErrNicknameTaken,
		},
		{
			name:    "invalid nickname",
			patch:   domain.ProfilePatch{Nickname: strPtr("a b")},
			wantErr: domain.ErrInvalidNickname,
		},
		{
			name:    "too many tech stacks",
			patch:   domain.ProfilePatch{TechStacks: &[]string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}},
			wantErr: domain.ErrTooManyTechStacks,
		},
		{
			name:  "write fails",
			patch: domain.ProfilePatch{Description: strPtr("changed")},
			setup: func(env *testEnv) {
				env.profiles.UpdateFn = func(ctx context.Context, userID string, patch domain.ProfilePatch) error {
					return domain.ErrTransient
				}
			},
			wantErr: domain.ErrTransient,
		},
		{
			name:  "nickname taken between check and write",
			patch: domain.ProfilePatch{Nickname: strPtr("dave")},
			setup: func(env *testEnv) {
				env.profiles.UpdateFn = func(ctx context.Context, userID string, patch domain.ProfilePatch) error {
					return domain.ErrNicknameTaken
				}
			},
			wantErr: domain.ErrNicknameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := signedIn(t, Options{})
			if tt.setup != nil {
				tt.setup(env)
			}
			before := env.coord.Snapshot().Profile

			err := env.coord.UpdateProfile(context.Background(), tt.patch)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, env.coord.Snapshot().Profile, "cached profile is unchanged on failure")
			assert.Empty(t, env.publisher.For("u-alice"))
		})
	}
}

func TestUpdateProfile_OwnNicknameSkipsCheck(t *testing.T) {
	env := signedIn(t, Options{})

	err := env.coord.UpdateProfile(context.Background(), domain.ProfilePatch{Nickname: strPtr("alice")})

	require.NoError(t, err)
	assert.Equal(t, 0, env.profiles.CallCount("FindNicknameOwners"))
}

func TestUpdateProfile_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t, Options{})

	err := env.coord.UpdateProfile(context.Background(), domain.ProfilePatch{Description: strPtr("x")})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 0, env.profiles.CallCount("Update"))
}

func TestUpdateProfile_EmptyPatchIsNoOp(t *testing.T) {
	env := signedIn(t, Options{})

	require.NoError(t, env.coord.UpdateProfile(context.Background(), domain.ProfilePatch{}))
	assert.Equal(t, 0, env.profiles.CallCount("Update"))
}

func TestClearIdentity_ResetsSessionData(t *testing.T) {
	env := signedIn(t, Options{})
	_, err := env.coord.ToggleLiked(context.Background(), "bob")
	require.NoError(t, err)
	env.coord.SetJobTitle("백엔드")

	env.coord.ClearIdentity()
	first := env.coord.Snapshot()
	env.coord.ClearIdentity()
	second := env.coord.Snapshot()

	for _, snap := range []State{first, second} {
		assert.Nil(t, snap.Identity)
		assert.Nil(t, snap.Profile)
		assert.Empty(t, snap.Liked)
	}
	assert.Equal(t, "백엔드", second.Wizard.JobTitle, "wizard progress survives ClearIdentity")
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name       string
		signOutErr error
	}{
		{"remote sign out succeeds", nil},
		{"remote sign out fails", domain.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := signedIn(t, Options{})
			env.session.SignOutErr = tt.signOutErr
			env.coord.SetNickname("alice2")
			env.coord.AdvanceStep()

			env.coord.Logout(context.Background())

			snap := env.coord.Snapshot()
			assert.Nil(t, snap.Identity)
			assert.Nil(t, snap.Profile)
			assert.Equal(t, domain.NewWizardState(), snap.Wizard)
			assert.Equal(t, 1, env.session.SignOutCalls)

			events := env.publisher.For("u-alice")
			require.Len(t, events, 1)
			assert.Equal(t, "session.ended", events[0].Type)
		})
	}
}

func TestWizard(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.coord.SetJobTitle("디자이너")
	env.coord.SetExperience("3")
	env.coord.SetNickname("neo")
	env.coord.SetBlog("https://neo.dev")
	env.coord.SetProfileImageURL("https://cdn.test/neo.png")
	require.NoError(t, env.coord.SetField(domain.FieldJobTitle, "PM"))

	err := env.coord.SetField("favorite_color", "blue")
	assert.ErrorIs(t, err, domain.ErrUnknownField)

	env.coord.RetreatStep()
	env.coord.RetreatStep()
	assert.Equal(t, domain.StepJob, env.coord.Snapshot().Wizard.Step)

	env.coord.AdvanceStep()
	env.coord.AdvanceStep()
	env.coord.RetreatStep()

	w := env.coord.Snapshot().Wizard
	assert.Equal(t, domain.WizardState{
		Step:            domain.StepExperience,
		JobTitle:        "PM",
		Experience:      "3",
		Nickname:        "neo",
		Blog:            "https://neo.dev",
		ProfileImageURL: "https://cdn.test/neo.png",
	}, w)

	env.coord.ResetWizard()
	assert.Equal(t, domain.NewWizardState(), env.coord.Snapshot().Wizard)
}

func TestSnapshot_IsIsolatedFromState(t *testing.T) {
	env := signedIn(t, Options{})

	snap := env.coord.Snapshot()
	snap.Profile.Nickname = "mallory"
	snap.Liked["bob"] = true

	again := env.coord.Snapshot()
	assert.Equal(t, "alice", again.Profile.Nickname)
	assert.Empty(t, again.Liked)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.ErrTransient, "transient"},
		{domain.ErrUnauthorized, "unauthorized"},
		{domain.ErrMemberNotFound, "not_found"},
		{domain.ErrNicknameTaken, "conflict"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, outcome(tt.err))
	}
}

var _ websocket.EventPublisher = (*recordingPublisher)(nil)
