package domain

import "time"

// Comment is an append-only message on a ticket thread.
type Comment struct {
	ID        int64
	TicketID  int64
	UserID    int64
	Username  string
	Message   string
	CreatedAt time.Time
}
