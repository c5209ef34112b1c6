package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// countHookRepo runs afterCount once, between reading the unread count and returning it.
type countHookRepo struct {
	repository.NotificationRepository
	afterCount func()
}

func (r *countHookRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	count, err := r.NotificationRepository.CountUnread(ctx, userID)
	if hook := r.afterCount; hook != nil {
		r.afterCount = nil
		hook()
	}
	return count, err
}

type hookedStore struct {
	repository.Store
	notifications repository.NotificationRepository
}

func (s hookedStore) Repos() repository.Repositories {
	repos := s.Store.Repos()
	repos.Notifications = s.notifications
	return repos
}

func TestMarkAllReadClearsUnreadCount(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Printer broken", &f.support.ID)
	for _, message := range []string{"one", "two", "three"} {
		_, err := f.tickets.AddComment(f.ctx, f.agent, ticket.ID, message)
		require.NoError(t, err)
	}

	count, err := f.notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	first := f.notificationsFor(t, f.client.ID)[0]
	_, err = f.notifications.MarkRead(f.ctx, f.client, first.ID)
	require.NoError(t, err)
	count, err = f.notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	changed, err := f.notifications.MarkAllRead(f.ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	count, err = f.notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Zero(t, count)

	changed, err = f.notifications.MarkAllRead(f.ctx, f.client)
	require.NoError(t, err)
	assert.Zero(t, changed)
	count, err = f.notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadIsIdempotentAndOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Printer broken", &f.support.ID)
	_, err := f.tickets.AddComment(f.ctx, f.agent, ticket.ID, "hi")
	require.NoError(t, err)
	note := f.notificationsFor(t, f.client.ID)[0]
	assert.False(t, note.IsRead)
	require.NotNil(t, note.RelatedType)
	assert.Equal(t, domain.RelatedTicket, *note.RelatedType)

	read, err := f.notifications.MarkRead(f.ctx, f.client, note.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	again, err := f.notifications.MarkRead(f.ctx, f.client, note.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)

	_, err = f.notifications.MarkRead(f.ctx, f.otherClient, note.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	_, err = f.notifications.MarkRead(f.ctx, f.client, 999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	err = f.notifications.Delete(f.ctx, f.admin, note.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	require.NoError(t, f.notifications.Delete(f.ctx, f.client, note.ID))
	assert.Empty(t, f.notificationsFor(t, f.client.ID))
}

func TestListNotificationsUnreadOnly(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Printer broken", &f.support.ID)
	for _, message := range []string{"one", "two"} {
		_, err := f.tickets.AddComment(f.ctx, f.agent, ticket.ID, message)
		require.NoError(t, err)
	}
	all, err := f.notifications.List(f.ctx, f.client, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = f.notifications.MarkRead(f.ctx, f.client, all[0].ID)
	require.NoError(t, err)
	unread, err := f.notifications.List(f.ctx, f.client, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, all[1].ID, unread[0].ID)
}

func TestMarkAllReadDuringBadgePollLeavesNoStaleCount(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Printer broken", &f.support.ID)
	for _, message := range []string{"one", "two", "three"} {
		_, err := f.tickets.AddComment(f.ctx, f.agent, ticket.ID, message)
		require.NoError(t, err)
	}

	gate, err := auth.NewGate()
	require.NoError(t, err)
	repo := &countHookRepo{NotificationRepository: f.store.Repos().Notifications}
	notifications := NewNotificationService(NotificationDependencies{
		Store:  hookedStore{Store: f.store, notifications: repo},
		Unread: cache.NewMemoryUnreadCounter(time.Minute),
		Gate:   gate,
	})

	repo.afterCount = func() {
		changed, err := notifications.MarkAllRead(f.ctx, f.client)
		require.NoError(t, err)
		assert.Equal(t, int64(3), changed)
	}
	polled, err := notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, int64(3), polled, "the poll answers with what it read")

	count, err := notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = notifications.UnreadCount(f.ctx, f.client)
	require.NoError(t, err)
	assert.Zero(t, count, "cached value matches the store")
}
