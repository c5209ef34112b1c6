package domain

import "time"

// Department groups agents and the tickets routed to them.
type Department struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
