package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event (created, updated, deleted)
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
	EventTypeEnded   EventType = "ended"
	EventTypeChecked EventType = "checked"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLike     EntityType = "like"
	EntityTypeProfile  EntityType = "profile"
	EntityTypeSession  EntityType = "session"
	EntityTypeNickname EntityType = "nickname"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "like.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "like"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// LikePayload tells a member who liked (or unliked) them
type LikePayload struct {
	FromNickname        string `json:"fromNickname"`
	FromProfileImageURL string `json:"fromProfileImageUrl,omitempty"`
	FromJobTitle        string `json:"fromJobTitle,omitempty"`
}

// NicknamePayload carries the settled availability of the nickname being typed
type NicknamePayload struct {
	Nickname     string `json:"nickname"`
	Availability string `json:"availability"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LikeCreated creates a like.created event
func LikeCreated(payload LikePayload) Event {
	return NewEvent(EventTypeCreated, EntityTypeLike, payload)
}

// LikeDeleted creates a like.deleted event
func LikeDeleted(payload LikePayload) Event {
	return NewEvent(EventTypeDeleted, EntityTypeLike, payload)
}

// ProfileUpdated creates a profile.updated event
func ProfileUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeProfile, payload)
}

// SessionEnded creates a session.ended event, sent to a member's other tabs on logout
func SessionEnded() Event {
	return NewEvent(EventTypeEnded, EntityTypeSession, nil)
}

// NicknameChecked creates a nickname.checked event for the signup form
func NicknameChecked(payload NicknamePayload) Event {
	return NewEvent(EventTypeChecked, EntityTypeNickname, payload)
}
