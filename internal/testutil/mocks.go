package testutil

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"golang.org/x/oauth2"
)

// MockProfileRepository is an in-memory domain.ProfileRepository.
// Set an XxxFn to override a method; calls are counted per method.
type MockProfileRepository struct {
	mu       sync.Mutex
	Profiles map[string]*domain.Profile // keyed by user ID
	Calls    map[string]int

	GetByUserIDFn        func(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateFn             func(ctx context.Context, userID string, patch domain.ProfilePatch) error
	InsertFn             func(ctx context.Context, profile *domain.Profile) error
	FindNicknameOwnersFn func(ctx context.Context, nickname, excludeUserID string) ([]string, error)
	GetByNicknameFn      func(ctx context.Context, nickname string) (*domain.Profile, error)
}

// NewMockProfileRepository creates a new MockProfileRepository
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		Profiles: make(map[string]*domain.Profile),
		Calls:    make(map[string]int),
	}
}

// AddProfile stores a profile (helper for tests)
func (m *MockProfileRepository) AddProfile(p domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	clone := p.Clone()
	m.Profiles[p.UserID] = &clone
}

// CallCount returns how many times method was called
func (m *MockProfileRepository) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// Get returns a copy of the stored profile for userID
func (m *MockProfileRepository) Get(userID string) (domain.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[userID]
	if !ok {
		return domain.Profile{}, false
	}
	return p.Clone(), true
}

func (m *MockProfileRepository) count(method string) {
	m.mu.Lock()
	m.Calls[method]++
	m.mu.Unlock()
}

// GetByUserID retrieves a profile by user ID
func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	m.count("GetByUserID")
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(ctx, userID)
	}
	if p, ok := m.Get(userID); ok {
		return &p, nil
	}
	return nil, domain.ErrProfileNotFound
}

// Exists reports whether a profile exists
func (m *MockProfileRepository) Exists(ctx context.Context, userID string) (bool, error) {
	m.count("Exists")
	_, ok := m.Get(userID)
	return ok, nil
}

// Insert stores a new profile
func (m *MockProfileRepository) Insert(ctx context.Context, p *domain.Profile) error {
	m.count("Insert")
	if m.InsertFn != nil {
		return m.InsertFn(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Profiles[p.UserID]; ok {
		return domain.ErrAlreadyExists
	}
	for _, existing := range m.Profiles {
		if existing.Nickname == p.Nickname {
			return domain.ErrNicknameTaken
		}
	}
	p.CreatedAt = time.Now()
	clone := p.Clone()
	m.Profiles[p.UserID] = &clone
	return nil
}

// Update applies a patch to a stored profile
func (m *MockProfileRepository) Update(ctx context.Context, userID string, patch domain.ProfilePatch) error {
	m.count("Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, userID, patch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[userID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if patch.Nickname != nil {
		for id, other := range m.Profiles {
			if id != userID && other.Nickname == *patch.Nickname {
				return domain.ErrNicknameTaken
			}
		}
	}
	patch.Apply(p)
	return nil
}

// FindNicknameOwners returns the IDs of users holding nickname, excluding excludeUserID
func (m *MockProfileRepository) FindNicknameOwners(ctx context.Context, nickname, excludeUserID string) ([]string, error) {
	m.count("FindNicknameOwners")
	if m.FindNicknameOwnersFn != nil {
		return m.FindNicknameOwnersFn(ctx, nickname, excludeUserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	owners := []string{}
	for id, p := range m.Profiles {
		if p.Nickname == nickname && id != excludeUserID {
			owners = append(owners, id)
		}
	}
	return owners, nil
}

// GetByNickname retrieves a profile by nickname
func (m *MockProfileRepository) GetByNickname(ctx context.Context, nickname string) (*domain.Profile, error) {
	m.count("GetByNickname")
	if m.GetByNicknameFn != nil {
		return m.GetByNicknameFn(ctx, nickname)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Profiles {
		if p.Nickname == nickname {
			clone := p.Clone()
			return &clone, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

// ListByUserIDs returns the stored profiles for the given IDs, in ID order
func (m *MockProfileRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	m.count("ListByUserIDs")
	m.mu.Lock()
	defer m.mu.Unlock()
	profiles := []domain.Profile{}
	for _, id := range userIDs {
		if p, ok := m.Profiles[id]; ok {
			profiles = append(profiles, p.Clone())
		}
	}
	return profiles, nil
}

// ListDirectory returns hub-listed profiles, newest first
func (m *MockProfileRepository) ListDirectory(ctx context.Context, filter domain.DirectoryFilter) ([]domain.Profile, error) {
	m.count("ListDirectory")
	m.mu.Lock()
	defer m.mu.Unlock()
	profiles := []domain.Profile{}
	for _, p := range m.Profiles {
		if !p.HubCard {
			continue
		}
		if filter.CompleteOnly && (p.Nickname == "" || p.JobTitle == "" || p.ProfileImageURL == "") {
			continue
		}
		if job := filter.JobTitle; job != "" && !strings.EqualFold(job, "all") && !strings.EqualFold(p.JobTitle, job) {
			continue
		}
		profiles = append(profiles, p.Clone())
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].CreatedAt.After(profiles[j].CreatedAt) })

	if filter.Offset >= len(profiles) {
		return []domain.Profile{}, nil
	}
	profiles = profiles[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(profiles) {
		profiles = profiles[:filter.Limit]
	}
	return profiles, nil
}

// MockInterestRepository is an in-memory domain.InterestRepository
type MockInterestRepository struct {
	mu    sync.Mutex
	Likes map[string][]string // liker -> liked, oldest first
	Calls map[string]int

	InsertFn func(ctx context.Context, userID, likedUserID string) error
	DeleteFn func(ctx context.Context, userID, likedUserID string) error
}

// NewMockInterestRepository creates a new MockInterestRepository
func NewMockInterestRepository() *MockInterestRepository {
	return &MockInterestRepository{
		Likes: make(map[string][]string),
		Calls: make(map[string]int),
	}
}

// CallCount returns how many times method was called
func (m *MockInterestRepository) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// Has reports whether userID likes likedUserID
func (m *MockInterestRepository) Has(userID, likedUserID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.Likes[userID] {
		if id == likedUserID {
			return true
		}
	}
	return false
}

// Insert adds the relation; repeated inserts are no-ops
func (m *MockInterestRepository) Insert(ctx context.Context, userID, likedUserID string) error {
	m.mu.Lock()
	m.Calls["Insert"]++
	m.mu.Unlock()
	if m.InsertFn != nil {
		return m.InsertFn(ctx, userID, likedUserID)
	}
	if m.Has(userID, likedUserID) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Likes[userID] = append(m.Likes[userID], likedUserID)
	return nil
}

// Delete removes the relation; deleting a missing relation is not an error
func (m *MockInterestRepository) Delete(ctx context.Context, userID, likedUserID string) error {
	m.mu.Lock()
	m.Calls["Delete"]++
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, userID, likedUserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Likes[userID][:0:0]
	for _, id := range m.Likes[userID] {
		if id != likedUserID {
			kept = append(kept, id)
		}
	}
	m.Likes[userID] = kept
	return nil
}

// ListLikedUserIDs returns liked IDs, most recent first
func (m *MockInterestRepository) ListLikedUserIDs(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ListLikedUserIDs"]++
	ids := m.Likes[userID]
	out := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, ids[i])
	}
	return out, nil
}

// MockSessionSource is a domain.SessionSource returning a fixed identity
type MockSessionSource struct {
	Identity     *domain.Identity
	Err          error
	GetSessionFn func(ctx context.Context) (*domain.Identity, error)
	SignOutErr   error
	SignOutCalls int
}

// GetSession returns the configured identity
func (m *MockSessionSource) GetSession(ctx context.Context) (*domain.Identity, error) {
	if m.GetSessionFn != nil {
		return m.GetSessionFn(ctx)
	}
	return m.Identity, m.Err
}

// SignOut records the call
func (m *MockSessionSource) SignOut(ctx context.Context) error {
	m.SignOutCalls++
	return m.SignOutErr
}

// MockAuthClient is a domain.AuthClient backed by a token -> identity map
type MockAuthClient struct {
	mu        sync.Mutex
	Sessions  map[string]*domain.Session  // keyed by exchange code
	Users     map[string]*domain.Identity // keyed by access token
	SignedOut []string
	Refreshes map[string]*domain.Session // keyed by refresh token

	ExchangeFn func(ctx context.Context, code, codeVerifier string) (*domain.Session, error)
	RefreshFn  func(ctx context.Context, refreshToken string) (*domain.Session, error)
}

// NewMockAuthClient creates a new MockAuthClient
func NewMockAuthClient() *MockAuthClient {
	return &MockAuthClient{
		Sessions: make(map[string]*domain.Session),
		Users:     make(map[string]*domain.Identity),
		Refreshes: make(map[string]*domain.Session),
	}
}

// AuthorizeURL returns a deterministic fake URL carrying the S256 challenge of codeVerifier
func (m *MockAuthClient) AuthorizeURL(provider, redirectTo, codeVerifier string) string {
	q := url.Values{
		"provider":       {provider},
		"redirect_to":    {redirectTo},
		"code_challenge": {oauth2.S256ChallengeFromVerifier(codeVerifier)},
	}
	return "https://auth.test/authorize?" + q.Encode()
}

// ExchangeCodeForSession returns the session registered for code
func (m *MockAuthClient) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*domain.Session, error) {
	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, code, codeVerifier)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[code]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: invalid auth code", domain.ErrInvalidInput)
}

// RefreshSession returns the session registered for refreshToken. A refreshed
// session's access token resolves to the same identity afterwards.
func (m *MockAuthClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Refreshes[refreshToken]
	if !ok {
		return nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}
	identity := s.Identity
	m.Users[s.AccessToken] = &identity
	return s, nil
}

// GetUser returns the identity registered for accessToken
func (m *MockAuthClient) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity, ok := m.Users[accessToken]; ok {
		copied := *identity
		return &copied, nil
	}
	return nil, domain.ErrUnauthorized
}

// SignOut forgets accessToken
func (m *MockAuthClient) SignOut(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Users, accessToken)
	m.SignedOut = append(m.SignedOut, accessToken)
	return nil
}

// UploadedBlob is one object stored in MockBlobRepository
type UploadedBlob struct {
	Data        []byte
	ContentType string
}

// MockBlobRepository is an in-memory storage.BlobRepository
type MockBlobRepository struct {
	mu       sync.Mutex
	Objects  map[string]UploadedBlob
	UploadFn func(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64, overwrite bool) (string, error)
}

// NewMockBlobRepository creates a new MockBlobRepository
func NewMockBlobRepository() *MockBlobRepository {
	return &MockBlobRepository{Objects: make(map[string]UploadedBlob)}
}

// Upload stores data under objectPath
func (m *MockBlobRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64, overwrite bool) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, objectPath, data, contentType, size, overwrite)
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Objects[objectPath]; exists && !overwrite {
		return "", domain.ErrAlreadyExists
	}
	m.Objects[objectPath] = UploadedBlob{Data: buf, ContentType: contentType}
	return m.PublicURL(objectPath), nil
}

// Delete removes an object
func (m *MockBlobRepository) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	return nil
}

// PublicURL returns a fake public URL
func (m *MockBlobRepository) PublicURL(objectPath string) string {
	return "https://cdn.test/images/" + objectPath
}

// Object returns a stored object
func (m *MockBlobRepository) Object(objectPath string) (UploadedBlob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Objects[objectPath]
	return b, ok
}
