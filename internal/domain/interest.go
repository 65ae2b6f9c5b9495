package domain

import "context"

// InterestRepository defines the liker -> liked relation rows.
// Insert and Delete are idempotent so concurrent toggles converge on the server state.
type InterestRepository interface {
	Insert(ctx context.Context, userID, likedUserID string) error
	Delete(ctx context.Context, userID, likedUserID string) error
	ListLikedUserIDs(ctx context.Context, userID string) ([]string, error)
}
