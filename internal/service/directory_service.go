package service

import (
	"context"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// Directory paging limits
const (
	DefaultDirectoryPageSize = 12
	MaxDirectoryPageSize     = 50
	MaxDirectoryPage         = 10000
)

// DirectoryQuery selects one page of the hub directory
type DirectoryQuery struct {
	Job   string // "all" or empty lists every job
	Page  int    // 1-based
	Limit int
}

// DirectoryPage is one page of member cards
type DirectoryPage struct {
	Members []domain.Profile `json:"members"`
	Page    int              `json:"page"`
	HasMore bool             `json:"hasMore"`
}

// DirectoryService lists members who opted into the hub directory
type DirectoryService struct {
	profiles domain.ProfileRepository
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(profiles domain.ProfileRepository) *DirectoryService {
	return &DirectoryService{profiles: profiles}
}

// ListMembers returns the hub cards with a nickname, job title and profile
// image, newest first. The job filter is case-insensitive.
func (s *DirectoryService) ListMembers(ctx context.Context, q DirectoryQuery) (*DirectoryPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > MaxDirectoryPage {
		page = MaxDirectoryPage
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultDirectoryPageSize
	}
	if limit > MaxDirectoryPageSize {
		limit = MaxDirectoryPageSize
	}

	// One extra row tells whether another page exists
	members, err := s.profiles.ListDirectory(ctx, domain.DirectoryFilter{
		JobTitle:     q.Job,
		CompleteOnly: true,
		Limit:        limit + 1,
		Offset:       (page - 1) * limit,
	})
	if err != nil {
		log.Error().Err(err).Str("job", q.Job).Int("page", page).Msg("Failed to list directory")
		return nil, err
	}

	hasMore := len(members) > limit
	if hasMore {
		members = members[:limit]
	}
	return &DirectoryPage{
		Members: members,
		Page:    page,
		HasMore: hasMore,
	}, nil
}
