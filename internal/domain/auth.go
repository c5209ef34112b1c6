package domain

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	ID           int64
	Username     string
	Role         Role
	DepartmentID *int64
}

// ActorFromUser builds an actor from a loaded account.
func ActorFromUser(u *User) Actor {
	return Actor{
		ID:           u.ID,
		Username:     u.Username,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
	}
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
