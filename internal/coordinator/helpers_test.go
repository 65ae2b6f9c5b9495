package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/testutil"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/websocket"
	"github.com/rs/zerolog"
)

var (
	aliceIdentity = domain.Identity{UserID: "u-alice", Email: "alice@example.com", FullName: "Alice"}
	aliceProfile  = domain.Profile{UserID: "u-alice", Nickname: "alice", Email: "alice@example.com", JobTitle: "백엔드", HubCard: true}
	bobProfile    = domain.Profile{UserID: "u-bob", Nickname: "bob", JobTitle: "프론트엔드", HubCard: true}
	carolProfile  = domain.Profile{UserID: "u-carol", Nickname: "carol", JobTitle: "디자이너"}
)

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]websocket.Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[string][]websocket.Event)}
}

func (p *recordingPublisher) Publish(userID string, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], event)
}

func (p *recordingPublisher) For(userID string) []websocket.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]websocket.Event(nil), p.events[userID]...)
}

type testEnv struct {
	coord     *Coordinator
	session   *testutil.MockSessionSource
	profiles  *testutil.MockProfileRepository
	interests *testutil.MockInterestRepository
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	identity := aliceIdentity
	env := &testEnv{
		session:   &testutil.MockSessionSource{Identity: &identity},
		profiles:  testutil.NewMockProfileRepository(),
		interests: testutil.NewMockInterestRepository(),
		publisher: newRecordingPublisher(),
	}
	env.profiles.AddProfile(aliceProfile)
	env.profiles.AddProfile(bobProfile)
	env.profiles.AddProfile(carolProfile)

	if opts.RemoteTimeout == 0 {
		opts.RemoteTimeout = time.Second
	}
	if opts.NicknameDebounce == 0 {
		opts.NicknameDebounce = 10 * time.Millisecond
	}

	env.coord = New(Deps{
		Session:   env.session,
		Profiles:  env.profiles,
		Interests: env.interests,
		Publisher: env.publisher,
		Logger:    zerolog.Nop(),
	}, opts)
	t.Cleanup(env.coord.Nickname().Stop)
	return env
}

// signedIn returns an env whose coordinator has identity and profile loaded
func signedIn(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := newTestEnv(t, opts)
	env.coord.SetIdentity(aliceIdentity)
	if err := env.coord.FetchProfile(t.Context()); err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	return env
}

func strPtr(s string) *string { return &s }
