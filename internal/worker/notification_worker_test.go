package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func TestSweepRemovesOnlyOldReadNotifications(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -100)
	store := memory.NewStore().WithClock(func() time.Time { return clock })

	user := &domain.User{Username: "carol", Email: "carol@example.com", PasswordHash: "x", Role: domain.RoleClient}
	require.NoError(t, store.Repos().Users.Create(ctx, user))
	repo := store.Repos().Notifications

	oldRead := &domain.Notification{UserID: user.ID, Message: "old read", Type: domain.NotificationInfo}
	oldUnread := &domain.Notification{UserID: user.ID, Message: "old unread", Type: domain.NotificationInfo}
	require.NoError(t, repo.Create(ctx, oldRead))
	require.NoError(t, repo.Create(ctx, oldUnread))
	require.NoError(t, repo.MarkRead(ctx, oldRead.ID))

	clock = now
	recent := &domain.Notification{UserID: user.ID, Message: "recent read", Type: domain.NotificationInfo}
	require.NoError(t, repo.Create(ctx, recent))
	require.NoError(t, repo.MarkRead(ctx, recent.ID))

	gate, err := auth.NewGate()
	require.NoError(t, err)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Gate:       gate,
		Dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
	})
	w := NewNotificationWorker(notifications, 90*24*time.Hour, time.Hour, zap.NewNop())
	w.now = func() time.Time { return now }

	assert.Equal(t, int64(1), w.Sweep(ctx))
	left, err := repo.ListByUser(ctx, user.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, left, 2)
	for _, n := range left {
		assert.NotEqual(t, oldRead.ID, n.ID)
	}
	assert.Zero(t, w.Sweep(ctx))
}

func TestStartAndStopWithoutRetention(t *testing.T) {
	w := NewNotificationWorker(nil, 0, 0, nil)
	w.Start()
	w.Stop()
	w.Stop()
}
