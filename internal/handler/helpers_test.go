package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/coordinator"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testAccessToken = "access-token-alice"

var (
	aliceIdentity = domain.Identity{UserID: "u-alice", Email: "alice@example.com", FullName: "Alice"}
	aliceProfile  = domain.Profile{UserID: "u-alice", Nickname: "alice", Email: "alice@example.com", JobTitle: "Backend", HubCard: true}
	bobProfile    = domain.Profile{UserID: "u-bob", Nickname: "bob", JobTitle: "Frontend", HubCard: true, ProfileImageURL: "https://cdn.test/bob.png"}
)

// testSession is a signed-in Coordinator over in-memory repositories
type testSession struct {
	coord     *coordinator.Coordinator
	session   *testutil.MockSessionSource
	profiles  *testutil.MockProfileRepository
	interests *testutil.MockInterestRepository
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()

	identity := aliceIdentity
	s := &testSession{
		session:   &testutil.MockSessionSource{Identity: &identity},
		profiles:  testutil.NewMockProfileRepository(),
		interests: testutil.NewMockInterestRepository(),
	}
	s.profiles.AddProfile(aliceProfile)
	s.profiles.AddProfile(bobProfile)

	s.coord = coordinator.New(coordinator.Deps{
		Session:   s.session,
		Profiles:  s.profiles,
		Interests: s.interests,
		Logger:    zerolog.Nop(),
	}, coordinator.Options{RemoteTimeout: time.Second, NicknameDebounce: 10 * time.Millisecond})
	t.Cleanup(s.coord.Nickname().Stop)

	s.coord.RestoreSession(context.Background())
	require.NotNil(t, s.coord.Snapshot().Identity)
	return s
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

// withSession attaches what the auth middleware would put on the request
func withSession(c echo.Context, coord *coordinator.Coordinator) {
	ctx := context.WithValue(c.Request().Context(), middleware.UserIDKey, aliceIdentity.UserID)
	ctx = context.WithValue(ctx, middleware.AccessTokenKey, testAccessToken)
	ctx = context.WithValue(ctx, middleware.CoordinatorKey, coord)
	c.SetRequest(c.Request().WithContext(ctx))
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func decodeJSON(t *testing.T, body io.Reader, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}
