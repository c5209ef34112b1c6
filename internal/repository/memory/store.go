// Package memory is an in-process implementation of the repository contracts. It backs
// local runs without Postgres and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store keeps every table in maps guarded by one mutex. A transaction holds the mutex for
// its whole duration and restores a snapshot when the callback fails.
type Store struct {
	mu    sync.Mutex
	data  *tables
	clock func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newTables(), clock: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source, used by tests that need deterministic dates.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) Repos() repository.Repositories {
	return s.bind(false)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.bind(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(inTx bool) repository.Repositories {
	h := &handle{store: s, inTx: inTx}
	return repository.Repositories{
		Users:         &userRepo{h},
		Departments:   &departmentRepo{h},
		Tickets:       &ticketRepo{h},
		Comments:      &commentRepo{h},
		Activity:      &activityRepo{h},
		Notifications: &notificationRepo{h},
		BacarKeys:     &bacarKeyRepo{h},
	}
}

type handle struct {
	store *Store
	inTx  bool
}

// run executes fn against the live tables. Outside a transaction each call takes the lock.
func (h *handle) run(ctx context.Context, fn func(t *tables, now time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !h.inTx {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
	}
	return fn(h.store.data, h.store.clock())
}

type tables struct {
	seq           map[string]int64
	users         map[int64]domain.User
	departments   map[int64]domain.Department
	tickets       map[int64]domain.Ticket
	comments      []domain.Comment
	activity      []domain.ActivityLog
	notifications map[int64]domain.Notification
	bacarKeys     map[int64]domain.BacarKey
}

func newTables() *tables {
	return &tables{
		seq:           map[string]int64{},
		users:         map[int64]domain.User{},
		departments:   map[int64]domain.Department{},
		tickets:       map[int64]domain.Ticket{},
		notifications: map[int64]domain.Notification{},
		bacarKeys:     map[int64]domain.BacarKey{},
	}
}

func (t *tables) nextID(table string) int64 {
	t.seq[table]++
	return t.seq[table]
}

func (t *tables) clone() *tables {
	c := &tables{
		seq:           make(map[string]int64, len(t.seq)),
		users:         make(map[int64]domain.User, len(t.users)),
		departments:   make(map[int64]domain.Department, len(t.departments)),
		tickets:       make(map[int64]domain.Ticket, len(t.tickets)),
		comments:      append([]domain.Comment(nil), t.comments...),
		activity:      append([]domain.ActivityLog(nil), t.activity...),
		notifications: make(map[int64]domain.Notification, len(t.notifications)),
		bacarKeys:     make(map[int64]domain.BacarKey, len(t.bacarKeys)),
	}
	for k, v := range t.seq {
		c.seq[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.departments {
		c.departments[k] = v
	}
	for k, v := range t.tickets {
		c.tickets[k] = v
	}
	for k, v := range t.notifications {
		c.notifications[k] = v
	}
	for k, v := range t.bacarKeys {
		c.bacarKeys[k] = v
	}
	return c
}

func (t *tables) username(id int64) string {
	return t.users[id].Username
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}

func sameID(a *int64, b int64) bool {
	return a != nil && *a == b
}
