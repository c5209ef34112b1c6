package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type departmentRepo struct{ h *handle }

func (r *departmentRepo) Create(ctx context.Context, dept *domain.Department) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if nameTaken(t, dept.Name, 0) {
			return repository.ErrConflict
		}
		dept.ID = t.nextID("departments")
		dept.CreatedAt, dept.UpdatedAt = now, now
		t.departments[dept.ID] = *dept
		return nil
	})
}

func (r *departmentRepo) Update(ctx context.Context, dept *domain.Department) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		current, ok := t.departments[dept.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if nameTaken(t, dept.Name, dept.ID) {
			return repository.ErrConflict
		}
		dept.CreatedAt = current.CreatedAt
		dept.UpdatedAt = now
		t.departments[dept.ID] = *dept
		return nil
	})
}

func (r *departmentRepo) Delete(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(t *tables, _ time.Time) error {
		if _, ok := t.departments[id]; !ok {
			return repository.ErrNotFound
		}
		for tid, ticket := range t.tickets {
			if sameID(ticket.DepartmentID, id) {
				ticket.DepartmentID = nil
				t.tickets[tid] = ticket
			}
		}
		for uid, user := range t.users {
			if sameID(user.DepartmentID, id) {
				user.DepartmentID = nil
				t.users[uid] = user
			}
		}
		delete(t.departments, id)
		return nil
	})
}

func (r *departmentRepo) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	var out *domain.Department
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		dept, ok := t.departments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &dept
		return nil
	})
	return out, err
}

func (r *departmentRepo) List(ctx context.Context) ([]domain.Department, error) {
	var out []domain.Department
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		for _, dept := range t.departments {
			out = append(out, dept)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func nameTaken(t *tables, name string, selfID int64) bool {
	for _, dept := range t.departments {
		if dept.ID != selfID && dept.Name == name {
			return true
		}
	}
	return false
}
