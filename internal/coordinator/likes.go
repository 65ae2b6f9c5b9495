package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/websocket"
)

// ToggleLiked flips the liked state of the member with nickname and persists it.
// Toggles for the same nickname are serialized; the returned value is the
// liked state after the call. On failure the mirror keeps (or returns to) its
// previous value and that value is returned with the error.
func (c *Coordinator) ToggleLiked(ctx context.Context, nickname string) (bool, error) {
	identity, epoch, err := c.currentIdentity()
	if err != nil {
		return false, err
	}

	unlock := c.likeLocks.lock(nickname)
	defer unlock()

	previous := c.Snapshot().Liked[nickname]
	next := !previous

	if c.opts.LikePolicy == LikeOptimistic {
		c.dispatch(likeSet{nickname: nickname, liked: next, epoch: epoch})
	}

	target, err := c.persistLike(ctx, identity, nickname, next)
	if err != nil {
		if c.opts.LikePolicy == LikeOptimistic {
			c.dispatch(likeSet{nickname: nickname, liked: previous, epoch: epoch})
			c.metrics.RecordLikeToggle("rolled_back")
		} else {
			c.metrics.RecordLikeToggle("failed")
		}
		c.logger.Warn().Err(err).Str("nickname", nickname).Bool("liked", next).Msg("Failed to toggle like")
		return previous, err
	}

	if c.opts.LikePolicy == LikePessimistic {
		c.dispatch(likeSet{nickname: nickname, liked: next, epoch: epoch})
	}
	c.metrics.RecordLikeToggle("committed")
	c.notifyLike(target.UserID, next)
	return next, nil
}

// persistLike resolves the member by nickname and writes or deletes the relation row.
// Both writes are idempotent, so the stored state only depends on the last write.
func (c *Coordinator) persistLike(ctx context.Context, identity domain.Identity, nickname string, liked bool) (*domain.Profile, error) {
	var target *domain.Profile
	err := c.call(ctx, "resolve_member", func(ctx context.Context) error {
		var err error
		target, err = c.profiles.GetByNickname(ctx, nickname)
		return err
	})
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrMemberNotFound
	}
	if target.UserID == identity.UserID {
		return nil, fmt.Errorf("%w: cannot like yourself", domain.ErrInvalidInput)
	}

	if liked {
		err = c.call(ctx, "insert_interest", func(ctx context.Context) error {
			return c.interests.Insert(ctx, identity.UserID, target.UserID)
		})
	} else {
		err = c.call(ctx, "delete_interest", func(ctx context.Context) error {
			return c.interests.Delete(ctx, identity.UserID, target.UserID)
		})
	}
	if err != nil {
		return nil, err
	}
	return target, nil
}

func (c *Coordinator) notifyLike(targetUserID string, liked bool) {
	snap := c.Snapshot()
	if snap.Profile == nil {
		return
	}
	payload := websocket.LikePayload{
		FromNickname:        snap.Profile.Nickname,
		FromProfileImageURL: snap.Profile.ProfileImageURL,
		FromJobTitle:        snap.Profile.JobTitle,
	}
	if liked {
		c.publisher.Publish(targetUserID, websocket.LikeCreated(payload))
	} else {
		c.publisher.Publish(targetUserID, websocket.LikeDeleted(payload))
	}
}

// FetchLikes loads the liked-members mirror from the stored relation
func (c *Coordinator) FetchLikes(ctx context.Context) error {
	_, err := c.LikedMembers(ctx)
	return err
}

// LikedMembers returns the profiles liked by the current identity, most recent
// first, and resynchronizes the mirror with them.
func (c *Coordinator) LikedMembers(ctx context.Context) ([]domain.Profile, error) {
	identity, epoch, err := c.currentIdentity()
	if err != nil {
		return nil, err
	}

	var members []domain.Profile
	err = c.call(ctx, "list_likes", func(ctx context.Context) error {
		ids, err := c.interests.ListLikedUserIDs(ctx, identity.UserID)
		if err != nil {
			return err
		}
		members, err = c.profiles.ListByUserIDs(ctx, ids)
		return err
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("Failed to load liked members")
		}
		return nil, err
	}

	liked := make(map[string]bool, len(members))
	for _, m := range members {
		liked[m.Nickname] = true
	}
	c.dispatch(likesLoaded{liked: liked, epoch: epoch})
	return members, nil
}

// keyedMutex serializes work per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
