package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `user_id::text, nickname, email, job_title, experience, description, blog,
	first_link_type, first_link, second_link_type, second_link,
	answer1, answer2, answer3, tech_stacks, hub_card,
	background_image_url, profile_image_url, created_at`

// ProfileRepository implements domain.ProfileRepository using PostgreSQL
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetByUserID retrieves the profile row owned by userID
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE user_id = $1::uuid`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// Exists reports whether a profile row exists for userID
func (r *ProfileRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1::uuid)`, userID).Scan(&exists)
	return exists, err
}

// Insert creates a profile row
func (r *ProfileRepository) Insert(ctx context.Context, p *domain.Profile) error {
	techStacks := p.TechStacks
	if techStacks == nil {
		techStacks = []string{}
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, nickname, email, job_title, experience, description, blog,
			first_link_type, first_link, second_link_type, second_link,
			answer1, answer2, answer3, tech_stacks, hub_card,
			background_image_url, profile_image_url)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at
	`, p.UserID, p.Nickname, p.Email, p.JobTitle, p.Experience, p.Description, p.Blog,
		p.FirstLinkType, p.FirstLink, p.SecondLinkType, p.SecondLink,
		p.Answer1, p.Answer2, p.Answer3, techStacks, p.HubCard,
		p.BackgroundImageURL, p.ProfileImageURL,
	).Scan(&p.CreatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Update applies the non-nil fields of patch to the row owned by userID
func (r *ProfileRepository) Update(ctx context.Context, userID string, patch domain.ProfilePatch) error {
	query, args := buildProfileUpdate(userID, patch)
	if query == "" {
		return nil
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// FindNicknameOwners returns the IDs of users holding nickname, excluding excludeUserID
func (r *ProfileRepository) FindNicknameOwners(ctx context.Context, nickname, excludeUserID string) ([]string, error) {
	query := `SELECT user_id::text FROM users WHERE nickname = $1`
	args := []any{nickname}
	if excludeUserID != "" {
		query += ` AND user_id <> $2::uuid`
		args = append(args, excludeUserID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetByNickname retrieves the profile holding nickname
func (r *ProfileRepository) GetByNickname(ctx context.Context, nickname string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE nickname = $1`, nickname)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByUserIDs retrieves the profiles for the given IDs, newest first
func (r *ProfileRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	if len(userIDs) == 0 {
		return []domain.Profile{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM users
		WHERE user_id = ANY($1::uuid[])
		ORDER BY created_at DESC
	`, userIDs)
	if err != nil {
		return nil, err
	}
	return collectProfiles(rows)
}

// ListDirectory retrieves members listed in the hub, newest first
func (r *ProfileRepository) ListDirectory(ctx context.Context, filter domain.DirectoryFilter) ([]domain.Profile, error) {
	query, args := buildDirectoryQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectProfiles(rows)
}

func buildDirectoryQuery(filter domain.DirectoryFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + profileColumns + ` FROM users WHERE hub_card = true`)

	var args []any
	if filter.CompleteOnly {
		b.WriteString(` AND nickname <> '' AND job_title <> '' AND profile_image_url <> ''`)
	}
	if job := strings.TrimSpace(filter.JobTitle); job != "" && !strings.EqualFold(job, "all") {
		args = append(args, strings.ToLower(job))
		fmt.Fprintf(&b, ` AND lower(job_title) = $%d`, len(args))
	}
	b.WriteString(` ORDER BY created_at DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}
	return b.String(), args
}

func buildProfileUpdate(userID string, patch domain.ProfilePatch) (string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addString := func(column string, value *string) {
		if value != nil {
			add(column, *value)
		}
	}

	addString("nickname", patch.Nickname)
	addString("email", patch.Email)
	addString("job_title", patch.JobTitle)
	addString("experience", patch.Experience)
	addString("description", patch.Description)
	addString("blog", patch.Blog)
	addString("first_link_type", patch.FirstLinkType)
	addString("first_link", patch.FirstLink)
	addString("second_link_type", patch.SecondLinkType)
	addString("second_link", patch.SecondLink)
	addString("answer1", patch.Answer1)
	addString("answer2", patch.Answer2)
	addString("answer3", patch.Answer3)
	if patch.TechStacks != nil {
		stacks := *patch.TechStacks
		if stacks == nil {
			stacks = []string{}
		}
		add("tech_stacks", stacks)
	}
	if patch.HubCard != nil {
		add("hub_card", *patch.HubCard)
	}
	addString("background_image_url", patch.BackgroundImageURL)
	addString("profile_image_url", patch.ProfileImageURL)

	if len(sets) == 0 {
		return "", nil
	}
	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE user_id = $%d::uuid", strings.Join(sets, ", "), len(args))
	return query, args
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.UserID, &p.Nickname, &p.Email, &p.JobTitle, &p.Experience, &p.Description, &p.Blog,
		&p.FirstLinkType, &p.FirstLink, &p.SecondLinkType, &p.SecondLink,
		&p.Answer1, &p.Answer2, &p.Answer3, &p.TechStacks, &p.HubCard,
		&p.BackgroundImageURL, &p.ProfileImageURL, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.TechStacks == nil {
		p.TechStacks = []string{}
	}
	return &p, nil
}

func collectProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// mapWriteError translates constraint violations into domain errors
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "nickname") {
				return domain.ErrNicknameTaken
			}
			return domain.ErrAlreadyExists
		case "23503": // foreign_key_violation
			return domain.ErrMemberNotFound
		case "22P02": // invalid_text_representation, e.g. malformed uuid
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgErr.Message)
		}
	}
	return err
}
