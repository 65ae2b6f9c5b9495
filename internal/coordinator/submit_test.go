package coordinator

import (
	"context"
	"testing"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillWizard(c *Coordinator) {
	c.SetJobTitle("디자이너")
	c.AdvanceStep()
	c.SetExperience("2")
	c.AdvanceStep()
	c.SetBlog("https://alice.design")
}

func TestSubmitProfile_PersistsWizard(t *testing.T) {
	env := signedIn(t, Options{})
	fillWizard(env.coord)

	ferr := env.coord.SubmitProfile(context.Background(), SubmitInput{
		Nickname:     "앨리스",
		Availability: domain.AvailabilityAvailable,
	})
	require.Nil(t, ferr)

	stored, ok := env.profiles.Get("u-alice")
	require.True(t, ok)
	assert.Equal(t, "앨리스", stored.Nickname)
	assert.Equal(t, "디자이너", stored.JobTitle)
	assert.Equal(t, "2", stored.Experience)
	assert.Equal(t, "https://alice.design", stored.Blog)
	assert.Equal(t, "alice@example.com", stored.Email)

	snap := env.coord.Snapshot()
	assert.Equal(t, domain.StepWelcome, snap.Wizard.Step)
	assert.Equal(t, "앨리스", snap.Wizard.Nickname)
	assert.Equal(t, "앨리스", snap.Profile.Nickname)
}

func TestSubmitProfile_UsesWizardNickname(t *testing.T) {
	env := signedIn(t, Options{})
	fillWizard(env.coord)
	env.coord.SetNickname("neo")

	require.Nil(t, env.coord.SubmitProfile(context.Background(), SubmitInput{}))

	stored, _ := env.profiles.Get("u-alice")
	assert.Equal(t, "neo", stored.Nickname)
}

func TestSubmitProfile_Errors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(env *testEnv)
		input     SubmitInput
		wantField string
		wantErr   error
	}{
		{
			name:      "signed out",
			setup:     func(env *testEnv) { env.coord.ClearIdentity() },
			input:     SubmitInput{Nickname: "neo"},
			wantField: "session",
			wantErr:   domain.ErrUnauthorized,
		},
		{
			name: "no verifiable email",
			setup: func(env *testEnv) {
				env.coord.SetIdentity(domain.Identity{UserID: "u-alice"})
			},
			input:     SubmitInput{Nickname: "neo"},
			wantField: "email",
			wantErr:   domain.ErrNoVerifiableEmail,
		},
		{
			name:      "invalid nickname",
			input:     SubmitInput{Nickname: "n e o"},
			wantField: "nickname",
			wantErr:   domain.ErrInvalidNickname,
		},
		{
			name:      "shown as taken",
			input:     SubmitInput{Nickname: "neo", Availability: domain.AvailabilityTaken},
			wantField: "nickname",
			wantErr:   domain.ErrNicknameTaken,
		},
		{
			name:      "taken since the last check",
			input:     SubmitInput{Nickname: "bob", Availability: domain.AvailabilityAvailable},
			wantField: "nickname",
			wantErr:   domain.ErrNicknameTaken,
		},
		{
			name: "write fails",
			setup: func(env *testEnv) {
				env.profiles.UpdateFn = func(ctx context.Context, userID string, patch domain.ProfilePatch) error {
					return domain.ErrTransient
				}
			},
			input:     SubmitInput{Nickname: "neo"},
			wantField: "profile",
			wantErr:   domain.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := signedIn(t, Options{})
			fillWizard(env.coord)
			if tt.setup != nil {
				tt.setup(env)
			}
			stepBefore := env.coord.Snapshot().Wizard.Step

			ferr := env.coord.SubmitProfile(context.Background(), tt.input)

			require.NotNil(t, ferr)
			assert.Equal(t, tt.wantField, ferr.Field)
			assert.ErrorIs(t, ferr, tt.wantErr)
			assert.Equal(t, stepBefore, env.coord.Snapshot().Wizard.Step, "wizard does not advance on failure")

			stored, _ := env.profiles.Get("u-alice")
			assert.Equal(t, "alice", stored.Nickname)
		})
	}
}
