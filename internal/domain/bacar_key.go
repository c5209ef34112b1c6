package domain

import "time"

// BacarKey is a device credential record managed by admins.
type BacarKey struct {
	ID              int64
	DeviceUser      string
	Username        string
	Password        string
	Notes           *string
	CreatedByUserID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
