package domain

import "time"

// TargetType names the kind of entity an activity entry is about.
type TargetType string

const (
	TargetTicket     TargetType = "ticket"
	TargetUser       TargetType = "user"
	TargetDepartment TargetType = "department"
	TargetSystem     TargetType = "system"
)

// Activity types written by the services.
const (
	ActivityTicketCreated      = "ticket_created"
	ActivityTicketDeleted      = "ticket_deleted"
	ActivityTitleChanged       = "title_changed"
	ActivityDescriptionChanged = "description_changed"
	ActivityStatusChanged      = "status_changed"
	ActivityPriorityChanged    = "priority_changed"
	ActivityDepartmentChanged  = "department_changed"
	ActivityAgentAssigned      = "agent_assigned"
	ActivityAgentUnassigned    = "agent_unassigned"
	ActivityCommentAdded       = "comment_added"
	ActivityUserRegistered     = "user_registered"
	ActivityUserCreated        = "user_created"
	ActivityUserUpdated        = "user_updated"
	ActivityUserDeleted        = "user_deleted"
	ActivityDepartmentCreated  = "department_created"
	ActivityDepartmentUpdated  = "department_updated"
	ActivityDepartmentDeleted  = "department_deleted"
	ActivityBacarKeyCreated    = "bacar_key_created"
	ActivityBacarKeyUpdated    = "bacar_key_updated"
	ActivityBacarKeyDeleted    = "bacar_key_deleted"
)

// ActivityLog is an immutable audit entry.
type ActivityLog struct {
	ID           int64
	UserID       *int64
	Username     *string
	TicketID     *int64
	ActivityType string
	Description  string
	TargetType   TargetType
	TargetID     *int64
	OldValue     ActivityValue
	NewValue     ActivityValue
	CreatedAt    time.Time
}
