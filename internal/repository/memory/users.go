package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type userRepo struct{ h *handle }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if err := checkUser(t, user, 0); err != nil {
			return err
		}
		user.ID = t.nextID("users")
		user.CreatedAt, user.UpdatedAt = now, now
		t.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		current, ok := t.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkUser(t, user, user.ID); err != nil {
			return err
		}
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = now
		t.users[user.ID] = cloneUser(*user)
		return nil
	})
}

// Delete follows the foreign-key rules of the SQL schema.
func (r *userRepo) Delete(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if _, ok := t.users[id]; !ok {
			return repository.ErrNotFound
		}
		for _, ticket := range t.tickets {
			if ticket.UserID == id {
				return repository.ErrConflict
			}
		}
		for _, c := range t.comments {
			if c.UserID == id {
				return repository.ErrConflict
			}
		}
		for tid, ticket := range t.tickets {
			if sameID(ticket.AssignedToUserID, id) {
				ticket.AssignedToUserID = nil
				t.tickets[tid] = ticket
			}
		}
		for nid, n := range t.notifications {
			if n.UserID == id {
				delete(t.notifications, nid)
			}
		}
		for i := range t.activity {
			if sameID(t.activity[i].UserID, id) {
				t.activity[i].UserID = nil
			}
		}
		for kid, key := range t.bacarKeys {
			if sameID(key.CreatedByUserID, id) {
				key.CreatedByUserID = nil
				t.bacarKeys[kid] = key
			}
		}
		delete(t.users, id)
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		user, ok := t.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u := cloneUser(user)
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for _, user := range t.users {
			if strings.EqualFold(user.Email, email) {
				u := cloneUser(user)
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		term := ""
		if filter.SearchTerm != nil {
			term = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		}
		for _, user := range t.users {
			if len(filter.Roles) > 0 && !containsRole(filter.Roles, user.Role) {
				continue
			}
			if filter.DepartmentID != nil && !sameID(user.DepartmentID, *filter.DepartmentID) {
				continue
			}
			if term != "" && !strings.Contains(strings.ToLower(user.Username), term) &&
				!strings.Contains(strings.ToLower(user.Email), term) {
				continue
			}
			out = append(out, cloneUser(user))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		out = page(out, filter.Offset, filter.Limit, 100, 1000)
		return nil
	})
	return out, err
}

func (r *userRepo) Footprint(ctx context.Context, id int64) (domain.UserFootprint, error) {
	var fp domain.UserFootprint
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for _, ticket := range t.tickets {
			if ticket.UserID == id {
				fp.CreatedTickets++
			}
			if sameID(ticket.AssignedToUserID, id) {
				fp.AssignedTickets++
			}
		}
		for _, c := range t.comments {
			if c.UserID == id {
				fp.Comments++
			}
		}
		return nil
	})
	return fp, err
}

func checkUser(t *tables, user *domain.User, selfID int64) error {
	for _, other := range t.users {
		if other.ID != selfID && strings.EqualFold(other.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	if user.DepartmentID != nil {
		if _, ok := t.departments[*user.DepartmentID]; !ok {
			return repository.ErrConflict
		}
	}
	return nil
}

func cloneUser(u domain.User) domain.User {
	u.DepartmentID = copyID(u.DepartmentID)
	return u
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit, fallback, max int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
