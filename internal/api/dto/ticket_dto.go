package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. UserID lets an admin file on behalf of a client.
type CreateTicketRequest struct {
	Title        string                `json:"title" validate:"required,max=255"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DepartmentID *int64                `json:"department_id" validate:"omitempty,gt=0"`
	UserID       *int64                `json:"user_id" validate:"omitempty,gt=0"`
}

// UpdateTicketRequest payload.
type UpdateTicketRequest struct {
	Title            *string                `json:"title" validate:"omitempty,max=255"`
	Description      *string                `json:"description"`
	Status           *domain.TicketStatus   `json:"status"`
	Priority         *domain.TicketPriority `json:"priority"`
	DepartmentID     NullableID             `json:"department_id"`
	AssignedToUserID NullableID             `json:"assigned_to_user_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Message string `json:"message" validate:"required"`
}

// TicketResponse is a ticket joined with the names the UI shows.
type TicketResponse struct {
	ID               int64                 `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	UserID           int64                 `json:"user_id"`
	CreatorUsername  string                `json:"creator_username"`
	AssignedToUserID *int64                `json:"assigned_to_user_id"`
	AssigneeUsername *string               `json:"assignee_username"`
	DepartmentID     *int64                `json:"department_id"`
	DepartmentName   *string               `json:"department_name"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	ClosedAt         *time.Time            `json:"closed_at"`
}

// TicketDetailResponse embeds the thread and the audit trail.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse     `json:"comments"`
	Activity []ActivityLogResponse `json:"activity"`
}

// CommentResponse represents one thread message.
type CommentResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketResponse maps a ticket view to its wire shape.
func NewTicketResponse(view *domain.TicketView) TicketResponse {
	return TicketResponse{
		ID:               view.ID,
		Title:            view.Title,
		Description:      view.Description,
		Status:           view.Status,
		Priority:         view.Priority,
		UserID:           view.UserID,
		CreatorUsername:  view.CreatorUsername,
		AssignedToUserID: view.AssignedToUserID,
		AssigneeUsername: view.AssigneeUsername,
		DepartmentID:     view.DepartmentID,
		DepartmentName:   view.DepartmentName,
		CreatedAt:        view.CreatedAt,
		UpdatedAt:        view.UpdatedAt,
		ClosedAt:         view.ClosedAt,
	}
}

// NewTicketResponses maps a list of ticket views.
func NewTicketResponses(views []domain.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, NewTicketResponse(&views[i]))
	}
	return out
}

// NewTicketDetailResponse bundles a ticket with its comments and activity.
func NewTicketDetailResponse(view *domain.TicketView, comments []domain.Comment, activity []domain.ActivityLog) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(view),
		Comments:       make([]CommentResponse, 0, len(comments)),
		Activity:       NewActivityLogResponses(activity),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&comments[i]))
	}
	return resp
}

// NewCommentResponse maps a comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		UserID:    comment.UserID,
		Username:  comment.Username,
		Message:   comment.Message,
		CreatedAt: comment.CreatedAt,
	}
}
