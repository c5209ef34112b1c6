package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// OptionalID is a patch field that distinguishes "absent" from an explicit null.
type OptionalID struct {
	Set bool
	ID  *int64
}

// SetID builds a present OptionalID; nil clears the reference.
func SetID(id *int64) OptionalID {
	return OptionalID{Set: true, ID: id}
}

// mapRepoError converts repository sentinels into DomainErrors for the given resource.
func mapRepoError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" conflicts with existing data", nil)
	}
	return apperrors.NewInternalError(err)
}

func notFoundWithID(resource string, id int64) error {
	return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
}

// activityWriter appends audit rows inside the caller's transaction.
type activityWriter struct {
	repo  repository.ActivityLogRepository
	actor domain.Actor
}

func newActivityWriter(repos repository.Repositories, actor domain.Actor) activityWriter {
	return activityWriter{repo: repos.Activity, actor: actor}
}

func (w activityWriter) write(ctx context.Context, entry domain.ActivityLog) error {
	if entry.UserID == nil && w.actor.ID > 0 {
		actorID := w.actor.ID
		entry.UserID = &actorID
	}
	if err := w.repo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("record %s activity: %w", entry.ActivityType, err)
	}
	return nil
}

func (w activityWriter) target(ctx context.Context, activityType, description string, target domain.TargetType, targetID int64, oldValue, newValue domain.ActivityValue) error {
	return w.write(ctx, domain.ActivityLog{
		ActivityType: activityType,
		Description:  description,
		TargetType:   target,
		TargetID:     &targetID,
		OldValue:     oldValue,
		NewValue:     newValue,
	})
}

// detached records one row per ticket that lost a reference to a deleted record.
func (w activityWriter) detached(ctx context.Context, tickets []domain.Ticket, activityType, description string, oldValue domain.ActivityValue) error {
	for _, ticket := range tickets {
		ticketID := ticket.ID
		if err := w.write(ctx, domain.ActivityLog{
			TicketID:     &ticketID,
			ActivityType: activityType,
			Description:  description,
			TargetType:   domain.TargetTicket,
			TargetID:     &ticketID,
			OldValue:     oldValue,
			NewValue:     domain.NoValue(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func hasScope(scopes []auth.Scope, want auth.Scope) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

// visibilityFilter narrows a ticket query to what the granted scopes expose.
func visibilityFilter(actor domain.Actor, scopes []auth.Scope, filter *repository.TicketFilter) {
	if hasScope(scopes, auth.ScopeAny) {
		return
	}
	if hasScope(scopes, auth.ScopeOwner) {
		creator := actor.ID
		filter.CreatorID = &creator
		return
	}
	scope := &domain.TicketScope{AssigneeID: actor.ID}
	if hasScope(scopes, auth.ScopeDepartment) {
		scope.DepartmentID = actor.DepartmentID
	}
	filter.Scope = scope
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func sameOptionalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func utcNow() time.Time {
	return time.Now().UTC()
}
