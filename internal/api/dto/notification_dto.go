package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type NotificationResponse struct {
	ID          int64                   `json:"id"`
	UserID      int64                   `json:"user_id"`
	Message     string                  `json:"message"`
	Type        domain.NotificationType `json:"type"`
	RelatedID   *int64                  `json:"related_id"`
	RelatedType *domain.RelatedType     `json:"related_type"`
	IsRead      bool                    `json:"is_read"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// UnreadCountResponse backs the badge counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse reports how many notifications flipped to read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// NewNotificationResponse maps a notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		UserID:      n.UserID,
		Message:     n.Message,
		Type:        n.Type,
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

// NewNotificationResponses maps a list of notifications.
func NewNotificationResponses(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, NewNotificationResponse(&items[i]))
	}
	return out
}
