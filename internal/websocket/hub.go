package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrClientClosed is returned when sending to a closed client
	ErrClientClosed = errors.New("client is closed")
	// ErrClientSlow is returned when a client's outbound buffer is full
	ErrClientSlow = errors.New("client send buffer full")
)

// DefaultMaxConnsPerMember bounds how many tabs one member may keep connected
const DefaultMaxConnsPerMember = 8

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	UserID() string
	Send(data []byte) error
	Close() error
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithMaxConnsPerMember sets the per-member connection cap. Zero disables it.
func WithMaxConnsPerMember(n int) HubOption {
	return func(h *Hub) { h.maxConns = n }
}

// Hub fans events out to the open tabs of each member.
// Connections are kept oldest first; slices are replaced, never edited in
// place, so a broadcast can work on a snapshot without holding the lock.
type Hub struct {
	mu       sync.RWMutex
	members  map[string][]ClientInterface
	maxConns int
}

// NewHub creates a new Hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		members:  make(map[string][]ClientInterface),
		maxConns: DefaultMaxConnsPerMember,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a client under its member. A member already at the cap loses
// their oldest connection.
func (h *Hub) Register(client ClientInterface) {
	userID := client.UserID()

	h.mu.Lock()
	current := h.members[userID]
	conns := make([]ClientInterface, 0, len(current)+1)
	conns = append(conns, current...)
	conns = append(conns, client)

	var evicted []ClientInterface
	if h.maxConns > 0 && len(conns) > h.maxConns {
		cut := len(conns) - h.maxConns
		evicted, conns = conns[:cut], conns[cut:]
	}
	h.members[userID] = conns
	h.mu.Unlock()

	for _, old := range evicted {
		_ = old.Close()
		log.Debug().Str("user_id", userID).Str("client_id", old.ID()).Msg("Closed oldest WebSocket connection over the cap")
	}
	log.Debug().Str("user_id", userID).Str("client_id", client.ID()).Int("connections", len(conns)).Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	userID := client.UserID()

	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.members[userID]
	conns := make([]ClientInterface, 0, len(current))
	for _, c := range current {
		if c.ID() != client.ID() {
			conns = append(conns, c)
		}
	}
	if len(conns) == len(current) {
		return
	}
	if len(conns) == 0 {
		delete(h.members, userID)
	} else {
		h.members[userID] = conns
	}
	log.Debug().Str("user_id", userID).Str("client_id", client.ID()).Msg("WebSocket client unregistered")
}

// Broadcast sends an event to all connections of a member. Clients whose
// buffer is full are dropped. A session.ended event is the last frame the
// member's connections receive before they are closed.
func (h *Hub) Broadcast(userID string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event_type", event.Type).Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	conns := h.members[userID]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	for _, c := range conns {
		switch err := c.Send(data); {
		case errors.Is(err, ErrClientSlow):
			log.Warn().Str("user_id", userID).Str("client_id", c.ID()).Msg("Dropping slow WebSocket client")
			h.Unregister(c)
			_ = c.Close()
		case err != nil:
			log.Debug().Err(err).Str("user_id", userID).Str("client_id", c.ID()).Msg("Skipped closed WebSocket client")
		}
	}

	log.Debug().Str("user_id", userID).Str("event_type", event.Type).Int("client_count", len(conns)).Msg("Broadcast event")

	if event.Entity == EntityTypeSession {
		h.Disconnect(userID)
	}
}

// Disconnect closes every connection of a member and returns how many there were
func (h *Hub) Disconnect(userID string) int {
	h.mu.Lock()
	conns := h.members[userID]
	delete(h.members, userID)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if len(conns) > 0 {
		log.Debug().Str("user_id", userID).Int("client_count", len(conns)).Msg("Disconnected member")
	}
	return len(conns)
}

// ClientCount returns the number of connections held by a member
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members[userID])
}

// TotalClientCount returns the number of connections across all members
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, conns := range h.members {
		total += len(conns)
	}
	return total
}
