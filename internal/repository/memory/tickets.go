package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type ticketRepo struct{ h *handle }

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		if _, ok := t.users[ticket.UserID]; !ok {
			return repository.ErrConflict
		}
		if err := checkTicketRefs(t, ticket); err != nil {
			return err
		}
		ticket.ID = t.nextID("tickets")
		ticket.CreatedAt, ticket.UpdatedAt = now, now
		t.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	return r.h.run(ctx, func(t *tables, now time.Time) error {
		current, ok := t.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkTicketRefs(t, ticket); err != nil {
			return err
		}
		ticket.UserID = current.UserID
		ticket.CreatedAt = current.CreatedAt
		ticket.UpdatedAt = now
		t.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *ticketRepo) Delete(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(t *tables, _ time.Time) error {
		if _, ok := t.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		kept := t.comments[:0:0]
		for _, c := range t.comments {
			if c.TicketID != id {
				kept = append(kept, c)
			}
		}
		t.comments = kept
		for i := range t.activity {
			if sameID(t.activity[i].TicketID, id) {
				t.activity[i].TicketID = nil
			}
		}
		delete(t.tickets, id)
		return nil
	})
}

func (r *ticketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		ticket, ok := t.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneTicket(ticket)
		out = &c
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here: a transaction already owns the whole store.
func (r *ticketRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) GetView(ctx context.Context, id int64) (*domain.TicketView, error) {
	var out *domain.TicketView
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		ticket, ok := t.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		view := viewOf(t, ticket)
		out = &view
		return nil
	})
	return out, err
}

func (r *ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.TicketView, error) {
	var out []domain.TicketView
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		matched := matchTickets(t, filter)
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID > matched[j].ID
		})
		for _, ticket := range page(matched, filter.Offset, filter.Limit, 50, 500) {
			out = append(out, viewOf(t, ticket))
		}
		return nil
	})
	return out, err
}

func (r *ticketRepo) ListAll(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.h.run(ctx, func(t *tables, _ time.Time) error {
		out = matchTickets(t, filter)
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func matchTickets(t *tables, f repository.TicketFilter) []domain.Ticket {
	term := ""
	if f.SearchTerm != nil {
		term = strings.ToLower(strings.TrimSpace(*f.SearchTerm))
	}
	var out []domain.Ticket
	for _, ticket := range t.tickets {
		if f.CreatorID != nil && ticket.UserID != *f.CreatorID {
			continue
		}
		if f.DepartmentID != nil && !sameID(ticket.DepartmentID, *f.DepartmentID) {
			continue
		}
		if f.AssigneeID != nil && !sameID(ticket.AssignedToUserID, *f.AssigneeID) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, ticket.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !containsPriority(f.Priorities, ticket.Priority) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(ticket.Title), term) &&
			!strings.Contains(strings.ToLower(ticket.Description), term) {
			continue
		}
		if f.Scope != nil && !f.Scope.Visible(&ticket) {
			continue
		}
		if f.CreatedFrom != nil && ticket.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && !ticket.CreatedAt.Before(*f.CreatedTo) {
			continue
		}
		out = append(out, cloneTicket(ticket))
	}
	return out
}

func checkTicketRefs(t *tables, ticket *domain.Ticket) error {
	if ticket.AssignedToUserID != nil {
		if _, ok := t.users[*ticket.AssignedToUserID]; !ok {
			return repository.ErrConflict
		}
	}
	if ticket.DepartmentID != nil {
		if _, ok := t.departments[*ticket.DepartmentID]; !ok {
			return repository.ErrConflict
		}
	}
	return nil
}

func viewOf(t *tables, ticket domain.Ticket) domain.TicketView {
	view := domain.TicketView{Ticket: cloneTicket(ticket), CreatorUsername: t.username(ticket.UserID)}
	if ticket.AssignedToUserID != nil {
		if user, ok := t.users[*ticket.AssignedToUserID]; ok {
			name := user.Username
			view.AssigneeUsername = &name
		}
	}
	if ticket.DepartmentID != nil {
		if dept, ok := t.departments[*ticket.DepartmentID]; ok {
			name := dept.Name
			view.DepartmentName = &name
		}
	}
	return view
}

func cloneTicket(ticket domain.Ticket) domain.Ticket {
	ticket.AssignedToUserID = copyID(ticket.AssignedToUserID)
	ticket.DepartmentID = copyID(ticket.DepartmentID)
	ticket.ClosedAt = copyTime(ticket.ClosedAt)
	return ticket
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
