package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusReopened   TicketStatus = "reopened"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusReopened,
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusOpen, TicketStatusResolved, TicketStatusClosed},
	TicketStatusReopened:   {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusReopened, TicketStatusInProgress},
	TicketStatusClosed:     {TicketStatusReopened},
}

// IsValid reports whether the status is a known value.
func (s TicketStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether the ticket counts as done. closed_at is set on entry.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// IsValid reports whether the priority is a known value.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               int64
	Title            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	UserID           int64
	AssignedToUserID *int64
	DepartmentID     *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// TicketView is a ticket joined with the display names the UI needs.
type TicketView struct {
	Ticket
	CreatorUsername  string
	AssigneeUsername *string
	DepartmentName   *string
}

// TicketScope restricts a query to tickets an agent may see.
type TicketScope struct {
	DepartmentID *int64
	AssigneeID   int64
}

// Visible reports whether the ticket falls inside the scope.
func (s TicketScope) Visible(t *Ticket) bool {
	if t.AssignedToUserID != nil && *t.AssignedToUserID == s.AssigneeID {
		return true
	}
	return s.DepartmentID != nil && t.DepartmentID != nil && *s.DepartmentID == *t.DepartmentID
}
