package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type ActivityLogResponse struct {
	ID           int64                `json:"id"`
	UserID       *int64               `json:"user_id"`
	Username     *string              `json:"username"`
	TicketID     *int64               `json:"ticket_id"`
	ActivityType string               `json:"activity_type"`
	Description  string               `json:"description"`
	TargetType   domain.TargetType    `json:"target_type"`
	TargetID     *int64               `json:"target_id"`
	OldValue     domain.ActivityValue `json:"old_value"`
	NewValue     domain.ActivityValue `json:"new_value"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewActivityLogResponses maps activity rows in the order given.
func NewActivityLogResponses(entries []domain.ActivityLog) []ActivityLogResponse {
	out := make([]ActivityLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActivityLogResponse{
			ID:           e.ID,
			UserID:       e.UserID,
			Username:     e.Username,
			TicketID:     e.TicketID,
			ActivityType: e.ActivityType,
			Description:  e.Description,
			TargetType:   e.TargetType,
			TargetID:     e.TargetID,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
