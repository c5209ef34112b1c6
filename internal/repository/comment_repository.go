package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository handles the append-only ticket conversation.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository constructs repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, user_id, message)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return translate(r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Message,
	).Scan(&comment.ID, &comment.CreatedAt))
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	const query = `
        SELECT c.id, c.ticket_id, c.user_id, u.username, c.message, c.created_at
        FROM comments c
        JOIN users u ON u.id = c.user_id
        WHERE c.ticket_id=$1
        ORDER BY c.created_at ASC, c.id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.UserID, &c.Username, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
