package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type commentRepo struct{ h *handle }

func (r *commentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if _, ok := t.tickets[comment.TicketID]; !ok {
			return repository.ErrConflict
		}
		if _, ok := t.users[comment.UserID]; !ok {
			return repository.ErrConflict
		}
		comment.ID = t.nextID("comments")
		comment.CreatedAt = now
		t.comments = append(t.comments, *comment)
		return nil
	})
}

func (r *commentRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for _, c := range t.comments {
			if c.TicketID == ticketID {
				c.Username = t.username(c.UserID)
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

type activityRepo struct{ h *handle }

func (r *activityRepo) Create(ctx context.Context, entry *domain.ActivityLog) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if entry.UserID != nil {
			if _, ok := t.users[*entry.UserID]; !ok {
				return repository.ErrConflict
			}
		}
		if entry.TicketID != nil {
			if _, ok := t.tickets[*entry.TicketID]; !ok {
				return repository.ErrConflict
			}
		}
		entry.ID = t.nextID("activity_logs")
		entry.CreatedAt = now
		stored := *entry
		stored.UserID = copyID(entry.UserID)
		stored.TicketID = copyID(entry.TicketID)
		stored.TargetID = copyID(entry.TargetID)
		stored.Username = nil
		t.activity = append(t.activity, stored)
		return nil
	})
}

func (r *activityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]domain.ActivityLog, error) {
	var out []domain.ActivityLog
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for i := len(t.activity) - 1; i >= 0; i-- {
			entry := t.activity[i]
			if filter.UserID != nil && !sameID(entry.UserID, *filter.UserID) {
				continue
			}
			if filter.TicketID != nil && !sameID(entry.TicketID, *filter.TicketID) {
				continue
			}
			if entry.UserID != nil {
				if user, ok := t.users[*entry.UserID]; ok {
					name := user.Username
					entry.Username = &name
				}
			}
			out = append(out, entry)
		}
		out = page(out, 0, filter.Limit, 50, 500)
		return nil
	})
	return out, err
}

type notificationRepo struct{ h *handle }

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if _, ok := t.users[n.UserID]; !ok {
			return repository.ErrConflict
		}
		n.ID = t.nextID("notifications")
		n.IsRead = false
		n.CreatedAt, n.UpdatedAt = now, now
		stored := *n
		stored.RelatedID = copyID(n.RelatedID)
		t.notifications[n.ID] = stored
		return nil
	})
}

func (r *notificationRepo) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	var out *domain.Notification
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		n, ok := t.notifications[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &n
		return nil
	})
	return out, err
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for _, n := range t.notifications {
			if n.UserID != userID || (unreadOnly && n.IsRead) {
				continue
			}
			out = append(out, n)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
		out = page(out, 0, limit, 50, 200)
		return nil
	})
	return out, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		n, ok := t.notifications[id]
		if !ok || n.IsRead {
			return nil
		}
		n.IsRead = true
		n.UpdatedAt = now
		t.notifications[id] = n
		return nil
	})
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.h.run(ctx, func(t *tables, now time.Time) error {
		for id, n := range t.notifications {
			if n.UserID == userID && !n.IsRead {
				n.IsRead = true
				n.UpdatedAt = now
				t.notifications[id] = n
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for _, n := range t.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *notificationRepo) Delete(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(t *tables, _ time.Time) error {
		if _, ok := t.notifications[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.notifications, id)
		return nil
	})
}

func (r *notificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for id, n := range t.notifications {
			if n.IsRead && n.UpdatedAt.Before(cutoff) {
				delete(t.notifications, id)
				count++
			}
		}
		return nil
	})
	return count, err
}

type bacarKeyRepo struct{ h *handle }

func (r *bacarKeyRepo) Create(ctx context.Context, key *domain.BacarKey) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		key.ID = t.nextID("bacar_keys")
		key.CreatedAt, key.UpdatedAt = now, now
		t.bacarKeys[key.ID] = cloneKey(*key)
		return nil
	})
}

func (r *bacarKeyRepo) Update(ctx context.Context, key *domain.BacarKey) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		current, ok := t.bacarKeys[key.ID]
		if !ok {
			return repository.ErrNotFound
		}
		key.CreatedByUserID = copyID(current.CreatedByUserID)
		key.CreatedAt = current.CreatedAt
		key.UpdatedAt = now
		t.bacarKeys[key.ID] = cloneKey(*key)
		return nil
	})
}

func (r *bacarKeyRepo) Delete(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(t *tables, _ time.Time) error {
		if _, ok := t.bacarKeys[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.bacarKeys, id)
		return nil
	})
}

func (r *bacarKeyRepo) GetByID(ctx context.Context, id int64) (*domain.BacarKey, error) {
	var out *domain.BacarKey
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		key, ok := t.bacarKeys[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneKey(key)
		out = &c
		return nil
	})
	return out, err
}

func (r *bacarKeyRepo) List(ctx context.Context, search string) ([]domain.BacarKey, error) {
	var out []domain.BacarKey
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		term := strings.ToLower(strings.TrimSpace(search))
		for _, key := range t.bacarKeys {
			if term != "" && !strings.Contains(strings.ToLower(key.DeviceUser), term) &&
				!strings.Contains(strings.ToLower(key.Username), term) {
				continue
			}
			out = append(out, cloneKey(key))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func cloneKey(key domain.BacarKey) domain.BacarKey {
	key.Notes = copyString(key.Notes)
	key.CreatedByUserID = copyID(key.CreatedByUserID)
	return key
}
