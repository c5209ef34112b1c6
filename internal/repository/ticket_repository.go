package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter narrows ticket listings. Scope restricts rows to what a staff member may see.
type TicketFilter struct {
	CreatorID    *int64
	DepartmentID *int64
	AssigneeID   *int64
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	Scope        *domain.TicketScope
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository defines persistence behaviour for tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	GetView(ctx context.Context, id int64) (*domain.TicketView, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error)
	// ListAll ignores Limit and Offset.
	ListAll(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository creates a Postgres-backed repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `t.id, t.title, t.description, t.status, t.priority, t.user_id,
        t.assigned_to_user_id, t.department_id, t.created_at, t.updated_at, t.closed_at`

const ticketViewSelect = `SELECT ` + ticketColumns + `, c.username, a.username, d.name
        FROM tickets t
        JOIN users c ON c.id = t.user_id
        LEFT JOIN users a ON a.id = t.assigned_to_user_id
        LEFT JOIN departments d ON d.id = t.department_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, user_id, assigned_to_user_id, department_id, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return translate(r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.UserID,
		ticket.AssignedToUserID,
		ticket.DepartmentID,
		ticket.ClosedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt))
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets
        SET title=$1, description=$2, status=$3, priority=$4, assigned_to_user_id=$5,
            department_id=$6, closed_at=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	return translate(r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedToUserID,
		ticket.DepartmentID,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt))
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	return expectRow(r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id))
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) GetView(ctx context.Context, id int64) (*domain.TicketView, error) {
	view, err := scanTicketView(r.db.QueryRow(ctx, ticketViewSelect+` WHERE t.id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return view, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error) {
	where, args := buildTicketWhere(filter)
	limit := normalizeLimit(filter.Limit, 50, 500)
	offset := max(filter.Offset, 0)

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		ticketViewSelect, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.TicketView
	for rows.Next() {
		view, err := scanTicketView(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListAll(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := buildTicketWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.created_at ASC, t.id ASC`, ticketColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CreatorID != nil {
		clauses = append(clauses, "t.user_id="+next(*filter.CreatorID))
	}
	if filter.DepartmentID != nil {
		clauses = append(clauses, "t.department_id="+next(*filter.DepartmentID))
	}
	if filter.AssigneeID != nil {
		clauses = append(clauses, "t.assigned_to_user_id="+next(*filter.AssigneeID))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = next(s)
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			placeholders[i] = next(p)
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		p := next("%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s)", p, p))
	}
	if filter.Scope != nil {
		assignee := next(filter.Scope.AssigneeID)
		if filter.Scope.DepartmentID != nil {
			clauses = append(clauses, fmt.Sprintf("(t.assigned_to_user_id=%s OR t.department_id=%s)",
				assignee, next(*filter.Scope.DepartmentID)))
		} else {
			clauses = append(clauses, "t.assigned_to_user_id="+assignee)
		}
	}
	if filter.CreatedFrom != nil {
		clauses = append(clauses, "t.created_at >= "+next(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		clauses = append(clauses, "t.created_at < "+next(*filter.CreatedTo))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row scanner) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.UserID,
		&t.AssignedToUserID,
		&t.DepartmentID,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTicketView(row scanner) (*domain.TicketView, error) {
	var v domain.TicketView
	if err := row.Scan(
		&v.ID,
		&v.Title,
		&v.Description,
		&v.Status,
		&v.Priority,
		&v.UserID,
		&v.AssignedToUserID,
		&v.DepartmentID,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.ClosedAt,
		&v.CreatorUsername,
		&v.AssigneeUsername,
		&v.DepartmentName,
	); err != nil {
		return nil, err
	}
	return &v, nil
}
