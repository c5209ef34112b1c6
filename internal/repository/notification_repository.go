package repository

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationRepository persists per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error)
	// MarkRead is a no-op for rows that are already read.
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	// DeleteReadBefore purges read notifications last touched before the cutoff.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, message, type, related_id, related_type, is_read, created_at, updated_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, message, type, related_id, related_type)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, is_read, created_at, updated_at`
	return translate(r.db.QueryRow(ctx, query,
		n.UserID,
		n.Message,
		n.Type,
		n.RelatedID,
		n.RelatedType,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt, &n.UpdatedAt))
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	const query = `SELECT ` + notificationColumns + `
        FROM notifications
        WHERE user_id=$1 AND ($2 = FALSE OR is_read = FALSE)
        ORDER BY created_at DESC, id DESC
        LIMIT $3`
	rows, err := r.db.Query(ctx, query, userID, unreadOnly, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE, updated_at=NOW() WHERE id=$1 AND is_read=FALSE`, id)
	return translate(err)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE, updated_at=NOW() WHERE user_id=$1 AND is_read=FALSE`, userID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read=FALSE`, userID).Scan(&count)
	return count, translate(err)
}

func (r *notificationRepository) Delete(ctx context.Context, id int64) error {
	return expectRow(r.db.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id))
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Message,
		&n.Type,
		&n.RelatedID,
		&n.RelatedType,
		&n.IsRead,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
