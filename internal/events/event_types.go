package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/storefront/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered       EventType = "user_registered"
	EventUserLoggedIn         EventType = "user_logged_in"
	EventLoginFailed          EventType = "login_failed"
	EventProfileUpdated       EventType = "profile_updated"
	EventProfileImageReplaced EventType = "profile_image_replaced"
	EventProfileImageRemoved  EventType = "profile_image_removed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, userID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// LoginPayload payload for both successful and failed logins.
type LoginPayload struct {
	Email    string `json:"email"`
	RemoteIP string `json:"remote_ip,omitempty"`
}

// ProfileUpdatedPayload lists the fields that changed.
type ProfileUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// ProfileImagePayload payload.
type ProfileImagePayload struct {
	NewURL string `json:"new_url,omitempty"`
	OldURL string `json:"old_url,omitempty"`
}
