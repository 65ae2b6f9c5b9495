package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/metrics"
	"github.com/rs/zerolog"
)

// Factory builds the Coordinator for one access token
type Factory func(accessToken string) *Coordinator

// Registry holds one Coordinator per browser session, keyed by a hash of the
// session's access token, and evicts sessions idle for longer than the TTL.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	factory  Factory
	ttl      time.Duration
	metrics  metrics.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

type registryEntry struct {
	coord    *Coordinator
	restore  sync.Once
	lastSeen time.Time
}

// NewRegistry creates a Registry. recorder may be nil.
func NewRegistry(factory Factory, ttl time.Duration, recorder metrics.Recorder, logger zerolog.Logger) *Registry {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &Registry{
		sessions: make(map[string]*registryEntry),
		factory:  factory,
		ttl:      ttl,
		metrics:  recorder,
		logger:   logger.With().Str("component", "registry").Logger(),
		now:      time.Now,
	}
}

func sessionKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}

// Get returns the Coordinator for accessToken, creating it and restoring its
// session on first use. Concurrent first requests wait for the same restore.
func (r *Registry) Get(ctx context.Context, accessToken string) *Coordinator {
	key := sessionKey(accessToken)

	r.mu.Lock()
	entry, ok := r.sessions[key]
	if !ok {
		entry = &registryEntry{coord: r.factory(accessToken)}
		r.sessions[key] = entry
		r.metrics.SetActiveSessions(len(r.sessions))
	}
	entry.lastSeen = r.now()
	r.mu.Unlock()

	entry.restore.Do(func() {
		entry.coord.RestoreSession(context.WithoutCancel(ctx))
	})
	return entry.coord
}

// Remove drops the session for accessToken
func (r *Registry) Remove(accessToken string) {
	key := sessionKey(accessToken)

	r.mu.Lock()
	entry, ok := r.sessions[key]
	delete(r.sessions, key)
	r.metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	if ok {
		entry.coord.Nickname().Stop()
	}
}

// Rekey moves the session held under oldToken to newToken and rebinds its
// Coordinator to the new token. It reports false when nothing is held under
// oldToken; the next Get for newToken then starts a fresh session.
func (r *Registry) Rekey(oldToken, newToken string) bool {
	oldKey, newKey := sessionKey(oldToken), sessionKey(newToken)
	if oldKey == newKey {
		return false
	}

	r.mu.Lock()
	entry, ok := r.sessions[oldKey]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, oldKey)
	displaced := r.sessions[newKey]
	r.sessions[newKey] = entry
	entry.lastSeen = r.now()
	r.metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	entry.coord.RebindAccessToken(newToken)
	if displaced != nil && displaced != entry {
		displaced.coord.Nickname().Stop()
	}
	r.logger.Debug().Msg("Session moved to refreshed token")
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts idle sessions and returns how many were removed
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []*registryEntry
	for key, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			evicted = append(evicted, entry)
			delete(r.sessions, key)
		}
	}
	r.metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	for _, entry := range evicted {
		entry.coord.Nickname().Stop()
	}
	if len(evicted) > 0 {
		r.logger.Debug().Int("evicted", len(evicted)).Msg("Evicted idle sessions")
	}
	return len(evicted)
}

// Run sweeps idle sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
