package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var calls []string
	d.Subscribe(EventTicketCommented, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCommented, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	d.Publish(context.Background(), New(EventTicketCommented, domain.Actor{ID: 1}, TicketCommentedPayload{TicketID: 9}))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestAssigneeChanged(t *testing.T) {
	one, two := int64(1), int64(2)
	assert.False(t, TicketUpdatedPayload{}.AssigneeChanged())
	assert.True(t, TicketUpdatedPayload{NewAssigneeID: &one}.AssigneeChanged())
	assert.False(t, TicketUpdatedPayload{OldAssigneeID: &one, NewAssigneeID: &one}.AssigneeChanged())
	assert.True(t, TicketUpdatedPayload{OldAssigneeID: &one, NewAssigneeID: &two}.AssigneeChanged())
	assert.False(t, TicketUpdatedPayload{OldAssigneeID: &one}.AssigneeChanged())
}
