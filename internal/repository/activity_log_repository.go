package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityLogFilter narrows audit listings. Zero Limit falls back to a default page.
type ActivityLogFilter struct {
	UserID   *int64
	TicketID *int64
	Limit    int
}

// ActivityLogRepository stores the append-only audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]domain.ActivityLog, error)
}

type activityLogRepository struct {
	db DBTX
}

// NewActivityLogRepository returns a Postgres-backed implementation.
func NewActivityLogRepository(db DBTX) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	const query = `
        INSERT INTO activity_logs (user_id, ticket_id, activity_type, description, target_type, target_id, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`

	return translate(r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.TicketID,
		entry.ActivityType,
		entry.Description,
		entry.TargetType,
		entry.TargetID,
		entry.OldValue.Bytes(),
		entry.NewValue.Bytes(),
	).Scan(&entry.ID, &entry.CreatedAt))
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]domain.ActivityLog, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("l.user_id=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("l.ticket_id=$%d", len(args)))
	}
	limit := normalizeLimit(filter.Limit, 50, 500)

	query := fmt.Sprintf(`
        SELECT l.id, l.user_id, u.username, l.ticket_id, l.activity_type, l.description,
               l.target_type, l.target_id, l.old_value, l.new_value, l.created_at
        FROM activity_logs l
        LEFT JOIN users u ON u.id = l.user_id
        WHERE %s
        ORDER BY l.created_at DESC, l.id DESC
        LIMIT %d`, strings.Join(clauses, " AND "), limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var entries []domain.ActivityLog
	for rows.Next() {
		var (
			entry    domain.ActivityLog
			oldValue []byte
			newValue []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Username,
			&entry.TicketID,
			&entry.ActivityType,
			&entry.Description,
			&entry.TargetType,
			&entry.TargetID,
			&oldValue,
			&newValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := entry.OldValue.UnmarshalJSON(oldValue); err != nil {
			return nil, fmt.Errorf("decode old_value of activity %d: %w", entry.ID, err)
		}
		if err := entry.NewValue.UnmarshalJSON(newValue); err != nil {
			return nil, fmt.Errorf("decode new_value of activity %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
