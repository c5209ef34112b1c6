package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const defaultActivityLimit = 50

// ActivityService reads the audit trail. Admins see everything, everyone else their own
// entries.
type ActivityService struct {
	activity repository.ActivityLogRepository
	gate     *auth.Gate
}

// NewActivityService constructs the service.
func NewActivityService(store repository.Store, gate *auth.Gate) *ActivityService {
	return &ActivityService{activity: store.Repos().Activity, gate: gate}
}

// List returns the newest entries visible to the actor.
func (s *ActivityService) List(ctx context.Context, actor domain.Actor, limit int) ([]domain.ActivityLog, error) {
	scopes := s.gate.GrantedScopes(actor.Role, auth.ResourceActivityLog, auth.ActionList)
	if len(scopes) == 0 {
		return nil, s.gate.Authorize(actor, auth.ResourceActivityLog, auth.ActionList)
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	filter := repository.ActivityLogFilter{Limit: limit}
	if !hasScope(scopes, auth.ScopeAny) {
		userID := actor.ID
		filter.UserID = &userID
	}
	entries, err := s.activity.List(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err, "activity_log")
	}
	return entries, nil
}
