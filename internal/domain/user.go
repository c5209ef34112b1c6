package domain

import "time"

// Role enumerates the access level of an account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

// IsValid reports whether the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleClient:
		return true
	}
	return false
}

// IsStaff reports whether the role works tickets (agent or admin).
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleAgent
}

// User is an account of any role. DepartmentID only gates ticket scope for staff.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	DepartmentID *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFootprint counts the rows that reference a user.
type UserFootprint struct {
	CreatedTickets  int
	AssignedTickets int
	Comments        int
}
