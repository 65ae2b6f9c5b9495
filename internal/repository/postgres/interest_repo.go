package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InterestRepository implements domain.InterestRepository using PostgreSQL
type InterestRepository struct {
	pool *pgxpool.Pool
}

// NewInterestRepository creates a new InterestRepository
func NewInterestRepository(pool *pgxpool.Pool) *InterestRepository {
	return &InterestRepository{pool: pool}
}

// Insert records that userID likes likedUserID. Repeated inserts are no-ops.
func (r *InterestRepository) Insert(ctx context.Context, userID, likedUserID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_interests (user_id, liked_user_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (user_id, liked_user_id) DO NOTHING
	`, userID, likedUserID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Delete removes the like relation. Deleting a missing row is not an error.
func (r *InterestRepository) Delete(ctx context.Context, userID, likedUserID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_interests WHERE user_id = $1::uuid AND liked_user_id = $2::uuid
	`, userID, likedUserID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// ListLikedUserIDs returns the IDs userID has liked, most recent first
func (r *InterestRepository) ListLikedUserIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT liked_user_id::text FROM user_interests
		WHERE user_id = $1::uuid
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
