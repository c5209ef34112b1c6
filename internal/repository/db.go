package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on unique or foreign-key violations.
	ErrConflict = errors.New("record conflicts with existing data")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every entity repository bound to one connection or transaction.
type Repositories struct {
	Users         UserRepository
	Departments   DepartmentRepository
	Tickets       TicketRepository
	Comments      CommentRepository
	Activity      ActivityLogRepository
	Notifications NotificationRepository
	BacarKeys     BacarKeyRepository
}

// NewRepositories binds Postgres repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Departments:   NewDepartmentRepository(db),
		Tickets:       NewTicketRepository(db),
		Comments:      NewCommentRepository(db),
		Activity:      NewActivityLogRepository(db),
		Notifications: NewNotificationRepository(db),
		BacarKeys:     NewBacarKeyRepository(db),
	}
}

// Store is the entity store: plain repositories plus a transaction boundary.
type Store interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type postgresStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

// NewPostgresStore builds a Store over a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, repos: NewRepositories(pool)}
}

func (s *postgresStore) Repos() Repositories {
	return s.repos
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (s *postgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
		}
	}
	return err
}

func expectRow(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
