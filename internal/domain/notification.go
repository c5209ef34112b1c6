package domain

import "time"

// NotificationType drives how the UI renders a notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
)

// RelatedType names the entity a notification points at.
type RelatedType string

const (
	RelatedTicket     RelatedType = "ticket"
	RelatedUser       RelatedType = "user"
	RelatedDepartment RelatedType = "department"
)

// Notification is a per-user message. It only ever moves from unread to read.
type Notification struct {
	ID          int64
	UserID      int64
	Message     string
	Type        NotificationType
	RelatedID   *int64
	RelatedType *RelatedType
	IsRead      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
