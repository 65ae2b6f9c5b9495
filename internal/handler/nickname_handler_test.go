package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNicknameCheck(t *testing.T) {
	tests := []struct {
		name        string
		nickname    string
		remoteErr   error
		want        domain.Availability
		wantMessage bool
		wantRemote  bool
	}{
		{"available", "neo_3", nil, domain.AvailabilityAvailable, false, true},
		{"taken", "bob", nil, domain.AvailabilityTaken, false, true},
		{"own nickname", "alice", nil, domain.AvailabilityAvailable, false, false},
		{"hangul", "개발자", nil, domain.AvailabilityAvailable, false, true},
		{"invalid", "a!", nil, domain.AvailabilityUnknown, true, false},
		{"remote failure", "neo_3", domain.ErrTransient, domain.AvailabilityUnknown, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			if tt.remoteErr != nil {
				s.profiles.FindNicknameOwnersFn = func(ctx context.Context, nickname, excludeUserID string) ([]string, error) {
					return nil, tt.remoteErr
				}
			}

			e := newTestEcho()
			h := NewNicknameHandler()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/nickname/check?nickname="+url.QueryEscape(tt.nickname), nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			withSession(c, s.coord)

			require.NoError(t, h.Check(c))
			assert.Equal(t, http.StatusOK, rec.Code)

			var resp NicknameCheckResponse
			decodeJSON(t, rec.Body, &resp)
			assert.Equal(t, tt.nickname, resp.Nickname)
			assert.Equal(t, tt.want, resp.Availability)
			assert.Equal(t, tt.wantMessage, resp.Message != "")
			assert.False(t, resp.Stale)

			calls := s.profiles.CallCount("FindNicknameOwners")
			assert.Equal(t, tt.wantRemote, calls > 0)

			candidate, availability := s.coord.Nickname().Result()
			assert.Equal(t, tt.nickname, candidate)
			assert.Equal(t, tt.want, availability)
		})
	}
}

func TestNicknameCheck_Unauthorized(t *testing.T) {
	e := newTestEcho()
	h := NewNicknameHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nickname/check?nickname=neo", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Check(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
