package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketCommented EventType = "ticket_commented"
	EventUserUpdated     EventType = "user_updated"
)

// Event represents a domain event emitted by services after their transaction commits.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, actor domain.Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// FieldChange is one applied difference, rendered for humans.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	TicketID      int64               `json:"ticket_id"`
	Title         string              `json:"title"`
	CreatorID     int64               `json:"creator_id"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	Changes       []FieldChange       `json:"changes"`
	OldAssigneeID *int64              `json:"old_assignee_id,omitempty"`
	NewAssigneeID *int64              `json:"new_assignee_id,omitempty"`
}

// AssigneeChanged reports whether the update handed the ticket to someone new.
func (p TicketUpdatedPayload) AssigneeChanged() bool {
	if p.NewAssigneeID == nil {
		return false
	}
	return p.OldAssigneeID == nil || *p.OldAssigneeID != *p.NewAssigneeID
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	TicketID    int64  `json:"ticket_id"`
	Title       string `json:"title"`
	CreatorID   int64  `json:"creator_id"`
	AssigneeID  *int64 `json:"assignee_id,omitempty"`
	CommentID   int64  `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}

// UserUpdatedPayload payload.
type UserUpdatedPayload struct {
	UserID int64    `json:"user_id"`
	Fields []string `json:"fields"`
}
