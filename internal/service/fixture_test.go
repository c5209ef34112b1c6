package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/secrets"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	clock *testClock

	auth          *AuthService
	tickets       *TicketService
	notifications *NotificationService
	users         *UserService
	departments   *DepartmentService
	keys          *BacarKeyService
	activity      *ActivityService
	reports       *ReportService

	support *domain.Department
	network *domain.Department

	admin       domain.Actor
	agent       domain.Actor
	otherAgent  domain.Actor
	client      domain.Actor
	otherClient domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := &testClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore().WithClock(clock.Now)
	gate, err := auth.NewGate()
	require.NoError(t, err)
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	hasher := auth.NewPasswordHasher(4)
	sealer, err := secrets.NewSealer("test-secrets-key")
	require.NoError(t, err)

	notifications := NewNotificationService(NotificationDependencies{
		Store:      store,
		Unread:     cache.NewMemoryUnreadCounter(time.Minute),
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notifications.RegisterHandlers()

	f := &fixture{
		ctx:   ctx,
		store: store,
		clock: clock,
		auth: NewAuthService(AuthDependencies{
			Store:       store,
			Tokens:      auth.NewTokenManager("test-secret", 60),
			Hasher:      hasher,
			Revocations: cache.NewMemoryRevocationList(),
			Logger:      logger,
		}),
		tickets: NewTicketService(TicketDependencies{
			Store:      store,
			Gate:       gate,
			Dispatcher: dispatcher,
			Logger:     logger,
			Clock:      clock.Now,
		}),
		notifications: notifications,
		users: NewUserService(UserDependencies{
			Store:      store,
			Gate:       gate,
			Hasher:     hasher,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		departments: NewDepartmentService(store, gate),
		keys:        NewBacarKeyService(store, gate, sealer),
		activity:    NewActivityService(store, gate),
		reports:     NewReportService(store, gate, notifications, clock.Now),
	}

	repos := store.Repos()
	f.support = &domain.Department{Name: "Support", Description: "First line"}
	f.network = &domain.Department{Name: "Network"}
	require.NoError(t, repos.Departments.Create(ctx, f.support))
	require.NoError(t, repos.Departments.Create(ctx, f.network))

	f.admin = f.seedUser(t, "admin", domain.RoleAdmin, nil)
	f.agent = f.seedUser(t, "agentx", domain.RoleAgent, &f.support.ID)
	f.otherAgent = f.seedUser(t, "agenty", domain.RoleAgent, &f.network.ID)
	f.client = f.seedUser(t, "carol", domain.RoleClient, nil)
	f.otherClient = f.seedUser(t, "dave", domain.RoleClient, nil)
	return f
}

func (f *fixture) seedUser(t *testing.T, name string, role domain.Role, departmentID *int64) domain.Actor {
	t.Helper()
	user := &domain.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		DepartmentID: departmentID,
	}
	require.NoError(t, f.store.Repos().Users.Create(f.ctx, user))
	return domain.ActorFromUser(user)
}

func (f *fixture) createTicket(t *testing.T, title string, departmentID *int64) *domain.TicketView {
	t.Helper()
	view, err := f.tickets.CreateTicket(f.ctx, f.client, TicketCreateInput{
		Title:        title,
		Description:  "details",
		Priority:     domain.TicketPriorityHigh,
		DepartmentID: departmentID,
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) ticketActivity(t *testing.T, ticketID int64) []domain.ActivityLog {
	t.Helper()
	entries, err := f.store.Repos().Activity.List(f.ctx, repository.ActivityLogFilter{TicketID: &ticketID, Limit: 500})
	require.NoError(t, err)
	return entries
}

func (f *fixture) notificationsFor(t *testing.T, userID int64) []domain.Notification {
	t.Helper()
	items, err := f.store.Repos().Notifications.ListByUser(f.ctx, userID, false, 500)
	require.NoError(t, err)
	return items
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func strPtr(s string) *string { return &s }

func idPtr(id int64) *int64 { return &id }
