package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// NotificationService turns domain events into per-user notifications and owns their
// read state.
type NotificationService struct {
	notifications repository.NotificationRepository
	unread        cache.UnreadCounter
	gate          *auth.Gate
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Store      repository.Store
	Unread     cache.UnreadCounter
	Gate       *auth.Gate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.Store.Repos().Notifications,
		unread:        deps.Unread,
		gate:          deps.Gate,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketCommented, n.handleTicketCommented)
	n.dispatcher.Subscribe(events.EventUserUpdated, n.handleUserUpdated)
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticketID := payload.TicketID
	var errs []error

	if payload.CreatorID != event.Actor.ID {
		kind := domain.NotificationInfo
		if payload.NewStatus.IsTerminal() && changedField(payload.Changes, "status") {
			kind = domain.NotificationSuccess
		}
		errs = append(errs, n.notify(ctx, &domain.Notification{
			UserID:    payload.CreatorID,
			Message:   fmt.Sprintf("Ticket #%d %q was updated by %s: %s", ticketID, payload.Title, event.Actor.Username, summarize(payload.Changes)),
			Type:      kind,
			RelatedID: &ticketID,
		}))
	}

	if payload.AssigneeChanged() && *payload.NewAssigneeID != event.Actor.ID && *payload.NewAssigneeID != payload.CreatorID {
		errs = append(errs, n.notify(ctx, &domain.Notification{
			UserID:    *payload.NewAssigneeID,
			Message:   fmt.Sprintf("Ticket #%d %q was assigned to you by %s", ticketID, payload.Title, event.Actor.Username),
			Type:      domain.NotificationInfo,
			RelatedID: &ticketID,
		}))
	}
	return errors.Join(errs...)
}

func (n *NotificationService) handleTicketCommented(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticketID := payload.TicketID
	message := fmt.Sprintf("%s commented on ticket #%d %q: %s", event.Actor.Username, ticketID, payload.Title, payload.BodyPreview)
	var errs []error

	if payload.CreatorID != event.Actor.ID {
		errs = append(errs, n.notify(ctx, &domain.Notification{
			UserID: payload.CreatorID, Message: message, Type: domain.NotificationInfo, RelatedID: &ticketID,
		}))
	}
	if payload.AssigneeID != nil && *payload.AssigneeID != event.Actor.ID && *payload.AssigneeID != payload.CreatorID {
		errs = append(errs, n.notify(ctx, &domain.Notification{
			UserID: *payload.AssigneeID, Message: message, Type: domain.NotificationInfo, RelatedID: &ticketID,
		}))
	}
	return errors.Join(errs...)
}

func (n *NotificationService) handleUserUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.UserID == event.Actor.ID {
		return nil
	}
	userID := payload.UserID
	related := domain.RelatedUser
	return n.notify(ctx, &domain.Notification{
		UserID:      userID,
		Message:     fmt.Sprintf("Your account was updated by %s (%s)", event.Actor.Username, strings.Join(payload.Fields, ", ")),
		Type:        domain.NotificationWarning,
		RelatedID:   &userID,
		RelatedType: &related,
	})
}

// notify writes one notification. Ticket notifications default their related type.
func (n *NotificationService) notify(ctx context.Context, notification *domain.Notification) error {
	if notification.RelatedID != nil && notification.RelatedType == nil {
		related := domain.RelatedTicket
		notification.RelatedType = &related
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("create notification for user %d: %w", notification.UserID, err)
	}
	n.invalidate(ctx, notification.UserID)
	return nil
}

func summarize(changes []events.FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.Old == "" && change.New == "" {
			parts = append(parts, change.Field+" updated")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s changed from %s to %s", change.Field, change.Old, change.New))
	}
	return strings.Join(parts, "; ")
}

func changedField(changes []events.FieldChange, field string) bool {
	for _, change := range changes {
		if change.Field == field {
			return true
		}
	}
	return false
}

// List returns the actor's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if err := n.gate.Authorize(actor, auth.ResourceNotification, auth.ActionList, auth.ScopeSelf); err != nil {
		return nil, err
	}
	items, err := n.notifications.ListByUser(ctx, actor.ID, unreadOnly, limit)
	if err != nil {
		return nil, mapRepoError(err, "notification")
	}
	return items, nil
}

// MarkRead flips one notification to read. Marking an already read notification succeeds.
func (n *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, id int64) (*domain.Notification, error) {
	notification, err := n.owned(ctx, actor, id, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		return notification, nil
	}
	if err := n.notifications.MarkRead(ctx, id); err != nil {
		return nil, mapRepoError(err, "notification")
	}
	n.invalidate(ctx, actor.ID)

	updated, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "notification")
	}
	return updated, nil
}

// MarkAllRead flips every unread notification of the actor and returns how many changed.
func (n *NotificationService) MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error) {
	if err := n.gate.Authorize(actor, auth.ResourceNotification, auth.ActionUpdate, auth.ScopeSelf); err != nil {
		return 0, err
	}
	count, err := n.notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, mapRepoError(err, "notification")
	}
	n.invalidate(ctx, actor.ID)
	return count, nil
}

// UnreadCount serves the badge counter, preferring the cache.
func (n *NotificationService) UnreadCount(ctx context.Context, actor domain.Actor) (int64, error) {
	if err := n.gate.Authorize(actor, auth.ResourceNotification, auth.ActionRead, auth.ScopeSelf); err != nil {
		return 0, err
	}
	var (
		generation int64
		cacheable  bool
	)
	if n.unread != nil {
		count, gen, ok, err := n.unread.Get(ctx, actor.ID)
		switch {
		case err != nil:
			n.logger.Warn("unread count cache read failed", zap.Int64("user_id", actor.ID), zap.Error(err))
		case ok:
			return count, nil
		default:
			generation, cacheable = gen, true
		}
	}

	// The generation is read before counting, so a write that lands in between makes Set
	// a no-op instead of caching the stale count.
	count, err := n.notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, mapRepoError(err, "notification")
	}
	if cacheable {
		if _, err := n.unread.Set(ctx, actor.ID, generation, count); err != nil {
			n.logger.Warn("unread count cache write failed", zap.Int64("user_id", actor.ID), zap.Error(err))
		}
	}
	return count, nil
}

// Delete removes one of the actor's notifications.
func (n *NotificationService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if _, err := n.owned(ctx, actor, id, auth.ActionDelete); err != nil {
		return err
	}
	if err := n.notifications.Delete(ctx, id); err != nil {
		return mapRepoError(err, "notification")
	}
	n.invalidate(ctx, actor.ID)
	return nil
}

func (n *NotificationService) owned(ctx context.Context, actor domain.Actor, id int64, act auth.Action) (*domain.Notification, error) {
	notification, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundWithID("notification", id)
		}
		return nil, mapRepoError(err, "notification")
	}
	if err := n.gate.Authorize(actor, auth.ResourceNotification, act, auth.SelfScope(actor, notification.UserID)...); err != nil {
		return nil, err
	}
	return notification, nil
}

func (n *NotificationService) invalidate(ctx context.Context, userID int64) {
	if n.unread == nil {
		return
	}
	if err := n.unread.Invalidate(ctx, userID); err != nil {
		n.logger.Warn("unread count cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// PurgeRead deletes read notifications older than cutoff. Unread counts are unaffected, so
// the cache stays valid.
func (n *NotificationService) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := n.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, mapRepoError(err, "notification")
	}
	return removed, nil
}
