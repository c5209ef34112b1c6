package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const ticketActivityLimit = 200

// TicketService coordinates ticket workflows: creation, the update lifecycle and comments.
type TicketService struct {
	store      repository.Store
	gate       *auth.Gate
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Gate       *auth.Gate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload. OnBehalfOf lets an admin file a
// ticket for a client.
type TicketCreateInput struct {
	Title        string
	Description  string
	Priority     domain.TicketPriority
	DepartmentID *int64
	OnBehalfOf   *int64
}

// TicketPatch is a partial update. Nil pointers and unset OptionalIDs leave fields alone.
type TicketPatch struct {
	Title            *string
	Description      *string
	Status           *domain.TicketStatus
	Priority         *domain.TicketPriority
	DepartmentID     OptionalID
	AssignedToUserID OptionalID
}

func (p TicketPatch) triages() bool {
	return p.Status != nil || p.Priority != nil || p.DepartmentID.Set || p.AssignedToUserID.Set
}

// TicketListFilter describes listing filters accepted from callers.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	DepartmentID *int64
	AgentID      *int64
	SearchTerm   *string
	Limit        int
	Offset       int
}

// TicketDetail is a ticket with its thread and audit trail.
type TicketDetail struct {
	Ticket   *domain.TicketView
	Comments []domain.Comment
	Activity []domain.ActivityLog
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &TicketService{
		store:      deps.Store,
		gate:       deps.Gate,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicket files a new ticket. The creator is always a client.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.TicketView, error) {
	if err := s.gate.Authorize(actor, auth.ResourceTicket, auth.ActionCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	var view *domain.TicketView
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		creatorID, err := s.resolveCreator(ctx, repos, actor, input.OnBehalfOf)
		if err != nil {
			return err
		}
		if input.DepartmentID != nil {
			if _, err := repos.Departments.GetByID(ctx, *input.DepartmentID); err != nil {
				return mapRepoError(err, "department")
			}
		}

		ticket := &domain.Ticket{
			Title:        title,
			Description:  strings.TrimSpace(input.Description),
			Status:       domain.TicketStatusOpen,
			Priority:     priority,
			UserID:       creatorID,
			DepartmentID: input.DepartmentID,
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return mapRepoError(err, "ticket")
		}

		ticketID := ticket.ID
		if err := newActivityWriter(repos, actor).write(ctx, domain.ActivityLog{
			TicketID:     &ticketID,
			ActivityType: domain.ActivityTicketCreated,
			Description:  fmt.Sprintf("Ticket #%d created: %s", ticket.ID, ticket.Title),
			TargetType:   domain.TargetTicket,
			TargetID:     &ticketID,
			NewValue:     domain.StringValue(string(ticket.Status)),
		}); err != nil {
			return err
		}

		view, err = repos.Tickets.GetView(ctx, ticket.ID)
		return mapRepoError(err, "ticket")
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *TicketService) resolveCreator(ctx context.Context, repos repository.Repositories, actor domain.Actor, onBehalfOf *int64) (int64, error) {
	if onBehalfOf == nil {
		if actor.Role != domain.RoleClient {
			return 0, apperrors.NewValidationError("user_id of the requesting client is required", map[string]any{"field": "user_id"})
		}
		return actor.ID, nil
	}
	if !actor.IsAdmin() && *onBehalfOf != actor.ID {
		return 0, apperrors.NewForbidden("only admins may file tickets for other users")
	}
	creator, err := repos.Users.GetByID(ctx, *onBehalfOf)
	if err != nil {
		return 0, mapRepoError(err, "user")
	}
	if creator.Role != domain.RoleClient {
		return 0, apperrors.NewValidationError("tickets can only be filed for clients", map[string]any{"user_id": creator.ID})
	}
	return creator.ID, nil
}

// GetTicket returns a ticket with its comments and activity.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID int64) (*TicketDetail, error) {
	repos := s.store.Repos()
	view, err := repos.Tickets.GetView(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundWithID("ticket", ticketID)
		}
		return nil, mapRepoError(err, "ticket")
	}
	if err := s.gate.Authorize(actor, auth.ResourceTicket, auth.ActionRead, auth.TicketScopes(actor, &view.Ticket)...); err != nil {
		return nil, err
	}

	comments, err := repos.Comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "comment")
	}
	activity, err := repos.Activity.List(ctx, repository.ActivityLogFilter{TicketID: &ticketID, Limit: ticketActivityLimit})
	if err != nil {
		return nil, mapRepoError(err, "activity log")
	}
	return &TicketDetail{Ticket: view, Comments: comments, Activity: activity}, nil
}

// ListTickets lists tickets visible to the actor.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.TicketView, error) {
	scopes := s.gate.GrantedScopes(actor.Role, auth.ResourceTicket, auth.ActionList)
	if len(scopes) == 0 {
		return nil, apperrors.NewForbidden("not allowed to list tickets")
	}
	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.IsValid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
	}

	repoFilter := repository.TicketFilter{
		DepartmentID: filter.DepartmentID,
		AssigneeID:   filter.AgentID,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	visibilityFilter(actor, scopes, &repoFilter)

	tickets, err := s.store.Repos().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return tickets, nil
}

// ticketUpdate accumulates the differences applied by one UpdateTicket call.
type ticketUpdate struct {
	activity []domain.ActivityLog
	changes  []events.FieldChange
}

func (u *ticketUpdate) add(ticketID int64, activityType, field, description string, oldValue, newValue domain.ActivityValue, oldText, newText string) {
	id := ticketID
	u.activity = append(u.activity, domain.ActivityLog{
		TicketID:     &id,
		ActivityType: activityType,
		Description:  description,
		TargetType:   domain.TargetTicket,
		TargetID:     &id,
		OldValue:     oldValue,
		NewValue:     newValue,
	})
	u.changes = append(u.changes, events.FieldChange{Field: field, Old: oldText, New: newText})
}

// UpdateTicket applies a patch. Reading the ticket, diffing, and writing the ticket plus
// one activity row per changed field happen in one transaction; notifications follow
// the commit. A patch without differences writes nothing.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID int64, patch TicketPatch) (*domain.TicketView, error) {
	var (
		view    *domain.TicketView
		payload events.TicketUpdatedPayload
		changed bool
	)

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundWithID("ticket", ticketID)
			}
			return mapRepoError(err, "ticket")
		}

		scopes := auth.TicketScopes(actor, ticket)
		if err := s.gate.Authorize(actor, auth.ResourceTicket, auth.ActionUpdate, scopes...); err != nil {
			return err
		}
		if patch.triages() {
			if err := s.gate.Authorize(actor, auth.ResourceTicket, auth.ActionTriage, scopes...); err != nil {
				return apperrors.NewForbidden("only agents and admins may change status, priority, department or assignment")
			}
		}

		oldAssignee := ticket.AssignedToUserID
		update, err := s.diff(ctx, repos, ticket, patch)
		if err != nil {
			return err
		}

		if len(update.activity) > 0 {
			changed = true
			if err := repos.Tickets.Update(ctx, ticket); err != nil {
				return mapRepoError(err, "ticket")
			}
			writer := newActivityWriter(repos, actor)
			for _, entry := range update.activity {
				if err := writer.write(ctx, entry); err != nil {
					return err
				}
			}
			payload = events.TicketUpdatedPayload{
				TicketID:      ticket.ID,
				Title:         ticket.Title,
				CreatorID:     ticket.UserID,
				NewStatus:     ticket.Status,
				Changes:       update.changes,
				OldAssigneeID: oldAssignee,
				NewAssigneeID: ticket.AssignedToUserID,
			}
		}

		view, err = repos.Tickets.GetView(ctx, ticket.ID)
		return mapRepoError(err, "ticket")
	})
	if err != nil {
		return nil, err
	}

	if changed && s.dispatcher != nil {
		s.dispatcher.Publish(ctx, events.New(events.EventTicketUpdated, actor, payload))
	}
	return view, nil
}

// diff validates the patch against the current ticket, mutates ticket in place and returns
// the activity rows for every field that actually changed.
func (s *TicketService) diff(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, patch TicketPatch) (*ticketUpdate, error) {
	update := &ticketUpdate{}

	if title := trimmedPtr(patch.Title); title != nil {
		if *title == "" {
			return nil, apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
		}
		if *title != ticket.Title {
			update.add(ticket.ID, domain.ActivityTitleChanged, "title",
				fmt.Sprintf("Title changed from %q to %q", ticket.Title, *title),
				domain.StringValue(ticket.Title), domain.StringValue(*title), ticket.Title, *title)
			ticket.Title = *title
		}
	}

	if description := trimmedPtr(patch.Description); description != nil && *description != ticket.Description {
		update.add(ticket.ID, domain.ActivityDescriptionChanged, "description", "Description updated",
			domain.StringValue(ticket.Description), domain.StringValue(*description), "", "")
		ticket.Description = *description
	}

	if patch.Status != nil {
		next := *patch.Status
		if !next.IsValid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
		}
		if next != ticket.Status {
			if !ticket.Status.CanTransitionTo(next) {
				return nil, apperrors.NewValidationError(
					fmt.Sprintf("cannot move ticket from %s to %s", ticket.Status, next),
					map[string]any{"from": ticket.Status, "to": next})
			}
			prev := ticket.Status
			update.add(ticket.ID, domain.ActivityStatusChanged, "status",
				fmt.Sprintf("Status changed from %s to %s", prev, next),
				domain.StringValue(string(prev)), domain.StringValue(string(next)), string(prev), string(next))
			ticket.Status = next
			switch {
			case next.IsTerminal() && !prev.IsTerminal():
				closedAt := s.now()
				ticket.ClosedAt = &closedAt
			case !next.IsTerminal():
				ticket.ClosedAt = nil
			}
		}
	}

	if patch.Priority != nil {
		next := *patch.Priority
		if !next.IsValid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": next})
		}
		if next != ticket.Priority {
			update.add(ticket.ID, domain.ActivityPriorityChanged, "priority",
				fmt.Sprintf("Priority changed from %s to %s", ticket.Priority, next),
				domain.StringValue(string(ticket.Priority)), domain.StringValue(string(next)),
				string(ticket.Priority), string(next))
			ticket.Priority = next
		}
	}

	if patch.DepartmentID.Set && !sameOptionalID(ticket.DepartmentID, patch.DepartmentID.ID) {
		newName := "none"
		if patch.DepartmentID.ID != nil {
			dept, err := repos.Departments.GetByID(ctx, *patch.DepartmentID.ID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, notFoundWithID("department", *patch.DepartmentID.ID)
				}
				return nil, mapRepoError(err, "department")
			}
			newName = dept.Name
		}
		oldName := s.departmentName(ctx, repos, ticket.DepartmentID)
		update.add(ticket.ID, domain.ActivityDepartmentChanged, "department",
			fmt.Sprintf("Department changed from %s to %s", oldName, newName),
			domain.IDValue(ticket.DepartmentID), domain.IDValue(patch.DepartmentID.ID), oldName, newName)
		ticket.DepartmentID = patch.DepartmentID.ID
	}

	if patch.AssignedToUserID.Set && !sameOptionalID(ticket.AssignedToUserID, patch.AssignedToUserID.ID) {
		oldName := s.username(ctx, repos, ticket.AssignedToUserID)
		if patch.AssignedToUserID.ID == nil {
			update.add(ticket.ID, domain.ActivityAgentUnassigned, "assignee",
				fmt.Sprintf("Unassigned from %s", oldName),
				domain.IDValue(ticket.AssignedToUserID), domain.NoValue(), oldName, "none")
		} else {
			assignee, err := repos.Users.GetByID(ctx, *patch.AssignedToUserID.ID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, notFoundWithID("user", *patch.AssignedToUserID.ID)
				}
				return nil, mapRepoError(err, "user")
			}
			if !assignee.Role.IsStaff() {
				return nil, apperrors.NewValidationError("tickets can only be assigned to agents or admins",
					map[string]any{"assigned_to_user_id": assignee.ID, "role": assignee.Role})
			}
			update.add(ticket.ID, domain.ActivityAgentAssigned, "assignee",
				fmt.Sprintf("Assigned to %s", assignee.Username),
				domain.IDValue(ticket.AssignedToUserID), domain.IDValue(&assignee.ID), oldName, assignee.Username)
		}
		ticket.AssignedToUserID = patch.AssignedToUserID.ID
	}

	return update, nil
}

func (s *TicketService) departmentName(ctx context.Context, repos repository.Repositories, id *int64) string {
	if id == nil {
		return "none"
	}
	dept, err := repos.Departments.GetByID(ctx, *id)
	if err != nil {
		return fmt.Sprintf("#%d", *id)
	}
	return dept.Name
}

func (s *TicketService) username(ctx context.Context, repos repository.Repositories, id *int64) string {
	if id == nil {
		return "none"
	}
	user, err := repos.Users.GetByID(ctx, *id)
	if err != nil {
		return fmt.Sprintf("#%d", *id)
	}
	return user.Username
}

// DeleteTicket removes a ticket; its comments go with it and its activity rows stay.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID int64) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundWithID("ticket", ticketID)
			}
			return mapRepoError(err, "ticket")
		}
		if err := s.gate.Authorize(actor, auth.ResourceTicket, auth.ActionDelete, auth.TicketScopes(actor, ticket)...); err != nil {
			return err
		}
		if err := newActivityWriter(repos, actor).write(ctx, domain.ActivityLog{
			TicketID:     &ticket.ID,
			ActivityType: domain.ActivityTicketDeleted,
			Description:  fmt.Sprintf("Ticket #%d deleted: %s", ticket.ID, ticket.Title),
			TargetType:   domain.TargetTicket,
			TargetID:     &ticket.ID,
			OldValue:     domain.StringValue(ticket.Title),
		}); err != nil {
			return err
		}
		return mapRepoError(repos.Tickets.Delete(ctx, ticket.ID), "ticket")
	})
}

// AddComment appends a message to the ticket thread.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID int64, message string) (*domain.Comment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}

	var (
		comment *domain.Comment
		payload events.TicketCommentedPayload
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundWithID("ticket", ticketID)
			}
			return mapRepoError(err, "ticket")
		}
		if err := s.gate.Authorize(actor, auth.ResourceTicket, auth.ActionComment, auth.TicketScopes(actor, ticket)...); err != nil {
			return err
		}

		comment = &domain.Comment{TicketID: ticket.ID, UserID: actor.ID, Username: actor.Username, Message: message}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return mapRepoError(err, "comment")
		}
		if err := newActivityWriter(repos, actor).write(ctx, domain.ActivityLog{
			TicketID:     &ticket.ID,
			ActivityType: domain.ActivityCommentAdded,
			Description:  fmt.Sprintf("Comment added by %s", actor.Username),
			TargetType:   domain.TargetTicket,
			TargetID:     &ticket.ID,
			NewValue:     domain.StringValue(preview(message)),
		}); err != nil {
			return err
		}

		payload = events.TicketCommentedPayload{
			TicketID:    ticket.ID,
			Title:       ticket.Title,
			CreatorID:   ticket.UserID,
			AssigneeID:  ticket.AssignedToUserID,
			CommentID:   comment.ID,
			BodyPreview: preview(message),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Publish(ctx, events.New(events.EventTicketCommented, actor, payload))
	}
	return comment, nil
}

func preview(message string) string {
	const limit = 120
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "..."
}
