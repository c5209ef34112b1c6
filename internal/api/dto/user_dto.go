package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserResponse never carries the password hash.
type UserResponse struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	DepartmentID *int64      `json:"department_id"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username     string      `json:"username" validate:"required,max=100"`
	Email        string      `json:"email" validate:"required,email"`
	Password     string      `json:"password" validate:"required,min=6"`
	Role         domain.Role `json:"role" validate:"required,oneof=admin agent client"`
	DepartmentID *int64      `json:"department_id" validate:"omitempty,gt=0"`
}

// UpdateUserRequest payload. Absent keys leave fields untouched.
type UpdateUserRequest struct {
	Username     *string      `json:"username" validate:"omitempty,max=100"`
	Email        *string      `json:"email" validate:"omitempty,email"`
	Password     *string      `json:"password" validate:"omitempty,min=6"`
	Role         *domain.Role `json:"role" validate:"omitempty,oneof=admin agent client"`
	DepartmentID NullableID   `json:"department_id"`
}

// NewUserResponse maps a user without the password hash.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// NewUserResponses maps a list of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
