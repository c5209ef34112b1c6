package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// BacarKeyRequest payload for create.
type BacarKeyRequest struct {
	DeviceUser string  `json:"device_user" validate:"required,max=255"`
	Username   string  `json:"username" validate:"required,max=255"`
	Password   string  `json:"password" validate:"required"`
	Notes      *string `json:"notes"`
}

// UpdateBacarKeyRequest payload.
type UpdateBacarKeyRequest struct {
	DeviceUser *string `json:"device_user" validate:"omitempty,max=255"`
	Username   *string `json:"username" validate:"omitempty,max=255"`
	Password   *string `json:"password"`
	Notes      *string `json:"notes"`
}

// BacarKeyResponse carries the plaintext password; only admins reach it.
type BacarKeyResponse struct {
	ID              int64     `json:"id"`
	DeviceUser      string    `json:"device_user"`
	Username        string    `json:"username"`
	Password        string    `json:"password"`
	Notes           *string   `json:"notes"`
	CreatedByUserID *int64    `json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewBacarKeyResponse maps a key whose password the service has already opened.
func NewBacarKeyResponse(key *domain.BacarKey) BacarKeyResponse {
	return BacarKeyResponse{
		ID:              key.ID,
		DeviceUser:      key.DeviceUser,
		Username:        key.Username,
		Password:        key.Password,
		Notes:           key.Notes,
		CreatedByUserID: key.CreatedByUserID,
		CreatedAt:       key.CreatedAt,
		UpdatedAt:       key.UpdatedAt,
	}
}

// NewBacarKeyResponses maps a list of keys.
func NewBacarKeyResponses(keys []domain.BacarKey) []BacarKeyResponse {
	out := make([]BacarKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, NewBacarKeyResponse(&keys[i]))
	}
	return out
}
