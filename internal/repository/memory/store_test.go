package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func seedUser(t *testing.T, store *Store, email string, role domain.Role, dept *int64) *domain.User {
	t.Helper()
	user := &domain.User{Username: email, Email: email, PasswordHash: "x", Role: role, DepartmentID: dept}
	require.NoError(t, store.Repos().Users.Create(context.Background(), user))
	return user
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	client := seedUser(t, store, "client@example.com", domain.RoleClient, nil)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, UserID: client.ID}
		require.NoError(t, repos.Tickets.Create(ctx, ticket))
		require.NoError(t, repos.Activity.Create(ctx, &domain.ActivityLog{
			UserID: &client.ID, TicketID: &ticket.ID, ActivityType: domain.ActivityTicketCreated, TargetType: domain.TargetTicket,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	tickets, err := store.Repos().Tickets.ListAll(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	logs, err := store.Repos().Activity.List(ctx, repository.ActivityLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestUserDeleteFollowsForeignKeys(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repos()
	client := seedUser(t, store, "client@example.com", domain.RoleClient, nil)
	agent := seedUser(t, store, "agent@example.com", domain.RoleAgent, nil)

	ticket := &domain.Ticket{Title: "vpn", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityHigh, UserID: client.ID, AssignedToUserID: &agent.ID}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))
	require.NoError(t, repos.Notifications.Create(ctx, &domain.Notification{UserID: agent.ID, Message: "hi", Type: domain.NotificationInfo}))

	assert.ErrorIs(t, repos.Users.Delete(ctx, client.ID), repository.ErrConflict)

	require.NoError(t, repos.Users.Delete(ctx, agent.ID))
	stored, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedToUserID)
	count, err := repos.Notifications.CountUnread(ctx, agent.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repos.Users.GetByID(ctx, agent.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDepartmentDeleteNullsReferences(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repos()
	dept := &domain.Department{Name: "Hardware"}
	require.NoError(t, repos.Departments.Create(ctx, dept))
	assert.ErrorIs(t, repos.Departments.Create(ctx, &domain.Department{Name: "Hardware"}), repository.ErrConflict)

	agent := seedUser(t, store, "agent@example.com", domain.RoleAgent, &dept.ID)
	client := seedUser(t, store, "client@example.com", domain.RoleClient, nil)
	ticket := &domain.Ticket{Title: "printer", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium, UserID: client.ID, DepartmentID: &dept.ID}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))

	require.NoError(t, repos.Departments.Delete(ctx, dept.ID))

	storedTicket, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, storedTicket.DepartmentID)
	storedAgent, err := repos.Users.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Nil(t, storedAgent.DepartmentID)
}

func TestTicketListFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	store := NewStore().WithClock(func() time.Time { return now })
	repos := store.Repos()

	hw := &domain.Department{Name: "Hardware"}
	sw := &domain.Department{Name: "Software"}
	require.NoError(t, repos.Departments.Create(ctx, hw))
	require.NoError(t, repos.Departments.Create(ctx, sw))
	client := seedUser(t, store, "client@example.com", domain.RoleClient, nil)
	agent := seedUser(t, store, "agent@example.com", domain.RoleAgent, &hw.ID)

	create := func(title string, dept *int64, assignee *int64, status domain.TicketStatus) *domain.Ticket {
		ticket := &domain.Ticket{Title: title, Status: status, Priority: domain.TicketPriorityLow, UserID: client.ID, DepartmentID: dept, AssignedToUserID: assignee}
		require.NoError(t, repos.Tickets.Create(ctx, ticket))
		now = now.Add(time.Hour)
		return ticket
	}
	inHW := create("Printer jam", &hw.ID, nil, domain.TicketStatusOpen)
	assigned := create("Excel crash", &sw.ID, &agent.ID, domain.TicketStatusInProgress)
	create("Outlook sync", &sw.ID, nil, domain.TicketStatusOpen)

	scoped, err := repos.Tickets.List(ctx, repository.TicketFilter{Scope: &domain.TicketScope{DepartmentID: &hw.ID, AssigneeID: agent.ID}})
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, assigned.ID, scoped[0].ID, "newest first")
	assert.Equal(t, inHW.ID, scoped[1].ID)
	assert.Equal(t, "agent@example.com", *scoped[0].AssigneeUsername)
	assert.Equal(t, "Software", *scoped[0].DepartmentName)

	term := "printer"
	found, err := repos.Tickets.List(ctx, repository.TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, inHW.ID, found[0].ID)

	open, err := repos.Tickets.List(ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	ranged, err := repos.Tickets.ListAll(ctx, repository.TicketFilter{CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, assigned.ID, ranged[0].ID)
}

func TestNotificationReadState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repos()
	user := seedUser(t, store, "user@example.com", domain.RoleClient, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, repos.Notifications.Create(ctx, &domain.Notification{UserID: user.ID, Message: "m", Type: domain.NotificationInfo}))
	}
	list, err := repos.Notifications.ListByUser(ctx, user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, repos.Notifications.MarkRead(ctx, list[0].ID))
	require.NoError(t, repos.Notifications.MarkRead(ctx, list[0].ID))

	unread, err := repos.Notifications.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	affected, err := repos.Notifications.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	affected, err = repos.Notifications.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestActivityListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repos()
	user := seedUser(t, store, "admin@example.com", domain.RoleAdmin, nil)

	for _, kind := range []string{domain.ActivityUserCreated, domain.ActivityDepartmentCreated, domain.ActivityBacarKeyCreated} {
		require.NoError(t, repos.Activity.Create(ctx, &domain.ActivityLog{
			UserID: &user.ID, ActivityType: kind, TargetType: domain.TargetSystem, NewValue: domain.StringValue(kind),
		}))
	}
	logs, err := repos.Activity.List(ctx, repository.ActivityLogFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.ActivityBacarKeyCreated, logs[0].ActivityType)
	assert.Equal(t, "admin@example.com", *logs[0].Username)
	got, ok := logs[0].NewValue.AsString()
	assert.True(t, ok)
	assert.Equal(t, domain.ActivityBacarKeyCreated, got)
}
