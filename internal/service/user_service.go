package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserService manages accounts on behalf of admins and self-service profile edits.
type UserService struct {
	store      repository.Store
	gate       *auth.Gate
	hasher     *auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store      repository.Store
	Gate       *auth.Gate
	Hasher     *auth.PasswordHasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// UserCreateInput is the admin creation payload.
type UserCreateInput struct {
	Username     string
	Email        string
	Password     string
	Role         domain.Role
	DepartmentID *int64
}

// UserPatch is a partial update. Role and department are admin-only.
type UserPatch struct {
	Username     *string
	Email        *string
	Password     *string
	Role         *domain.Role
	DepartmentID OptionalID
}

// UserListFilter narrows the admin user listing.
type UserListFilter struct {
	Role         *domain.Role
	DepartmentID *int64
	SearchTerm   *string
	Limit        int
	Offset       int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		store:      deps.Store,
		gate:       deps.Gate,
		hasher:     deps.Hasher,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, actor domain.Actor, filter UserListFilter) ([]domain.User, error) {
	if err := s.gate.Authorize(actor, auth.ResourceUser, auth.ActionList); err != nil {
		return nil, err
	}
	repoFilter := repository.UserFilter{
		DepartmentID: filter.DepartmentID,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	if filter.Role != nil {
		if !filter.Role.IsValid() {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *filter.Role})
		}
		repoFilter.Roles = []domain.Role{*filter.Role}
	}
	users, err := s.store.Repos().Users.List(ctx, repoFilter)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return users, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error) {
	user, err := s.load(ctx, s.store.Repos(), id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(actor, auth.ResourceUser, auth.ActionRead, auth.SelfScope(actor, user.ID)...); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) load(ctx context.Context, repos repository.Repositories, id int64) (*domain.User, error) {
	user, err := repos.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundWithID("user", id)
		}
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// Create adds an account of any role.
func (s *UserService) Create(ctx context.Context, actor domain.Actor, input UserCreateInput) (*domain.User, error) {
	if err := s.gate.Authorize(actor, auth.ResourceUser, auth.ActionCreate); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
	}
	if !input.Role.IsValid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if err := checkPassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         input.Role,
		DepartmentID: input.DepartmentID,
	}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := s.ensureEmailFree(ctx, repos, user.Email, 0); err != nil {
			return err
		}
		if err := ensureDepartment(ctx, repos, user.DepartmentID); err != nil {
			return err
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return mapRepoError(err, "user")
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityUserCreated,
			fmt.Sprintf("User %s created with role %s", user.Username, user.Role),
			domain.TargetUser, user.ID, domain.NoValue(), domain.StringValue(string(user.Role)))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a partial account edit. Users may edit their own username, email and
// password; only admins change roles and departments.
func (s *UserService) Update(ctx context.Context, actor domain.Actor, id int64, patch UserPatch) (*domain.User, error) {
	var (
		user   *domain.User
		fields []string
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		user, err = s.load(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(actor, auth.ResourceUser, auth.ActionUpdate, auth.SelfScope(actor, user.ID)...); err != nil {
			return err
		}
		if (patch.Role != nil || patch.DepartmentID.Set) && !actor.IsAdmin() {
			return apperrors.NewForbidden("only admins may change role or department")
		}

		fields, err = s.apply(ctx, repos, actor, user, patch)
		if err != nil || len(fields) == 0 {
			return err
		}
		if err := repos.Users.Update(ctx, user); err != nil {
			return mapRepoError(err, "user")
		}
		changed, err := domain.JSONValue(fields)
		if err != nil {
			return err
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityUserUpdated,
			fmt.Sprintf("User %s updated: %s", user.Username, strings.Join(fields, ", ")),
			domain.TargetUser, user.ID, domain.NoValue(), changed)
	})
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 && actor.ID != user.ID && s.dispatcher != nil {
		s.dispatcher.Publish(ctx, events.New(events.EventUserUpdated, actor, events.UserUpdatedPayload{UserID: user.ID, Fields: fields}))
	}
	return user, nil
}

func (s *UserService) apply(ctx context.Context, repos repository.Repositories, actor domain.Actor, user *domain.User, patch UserPatch) ([]string, error) {
	var fields []string

	if username := trimmedPtr(patch.Username); username != nil && *username != user.Username {
		if *username == "" {
			return nil, apperrors.NewValidationError("username must not be empty", map[string]any{"field": "username"})
		}
		user.Username = *username
		fields = append(fields, "username")
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperrors.NewValidationError("email must not be empty", map[string]any{"field": "email"})
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, repos, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
			fields = append(fields, "email")
		}
	}

	if patch.Password != nil {
		if err := checkPassword(*patch.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
		fields = append(fields, "password")
	}

	if patch.Role != nil && *patch.Role != user.Role {
		if err := s.checkRoleChange(ctx, repos, actor, user, *patch.Role); err != nil {
			return nil, err
		}
		user.Role = *patch.Role
		fields = append(fields, "role")
	}

	if patch.DepartmentID.Set && !sameOptionalID(user.DepartmentID, patch.DepartmentID.ID) {
		if err := ensureDepartment(ctx, repos, patch.DepartmentID.ID); err != nil {
			return nil, err
		}
		user.DepartmentID = patch.DepartmentID.ID
		fields = append(fields, "department")
	}
	return fields, nil
}

// checkRoleChange refuses role changes that would break ticket invariants: creators are
// clients and assignees are staff.
func (s *UserService) checkRoleChange(ctx context.Context, repos repository.Repositories, actor domain.Actor, user *domain.User, next domain.Role) error {
	if !next.IsValid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": next})
	}
	if user.ID == actor.ID {
		return apperrors.NewConflict("admins cannot change their own role", nil)
	}
	footprint, err := repos.Users.Footprint(ctx, user.ID)
	if err != nil {
		return mapRepoError(err, "user")
	}
	if user.Role == domain.RoleClient && next.IsStaff() && footprint.CreatedTickets > 0 {
		return apperrors.NewConflict("client has filed tickets and cannot become staff",
			map[string]any{"created_tickets": footprint.CreatedTickets})
	}
	if user.Role.IsStaff() && next == domain.RoleClient && footprint.AssignedTickets > 0 {
		return apperrors.NewConflict("user still has assigned tickets",
			map[string]any{"assigned_tickets": footprint.AssignedTickets})
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, repos repository.Repositories, email string, selfID int64) error {
	existing, err := repos.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapRepoError(err, "user")
	}
	if existing.ID != selfID {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	return nil
}

func ensureDepartment(ctx context.Context, repos repository.Repositories, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := repos.Departments.GetByID(ctx, *id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundWithID("department", *id)
		}
		return mapRepoError(err, "department")
	}
	return nil
}

// Delete removes an account that has no tickets or comments of its own. Assigned tickets
// are unassigned with an activity row each, and the user's notifications go with the account.
func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(actor, auth.ResourceUser, auth.ActionDelete); err != nil {
			return err
		}
		if user.ID == actor.ID {
			return apperrors.NewConflict("you cannot delete your own account", nil)
		}
		footprint, err := repos.Users.Footprint(ctx, user.ID)
		if err != nil {
			return mapRepoError(err, "user")
		}
		if footprint.CreatedTickets > 0 || footprint.Comments > 0 {
			return apperrors.NewConflict("user has tickets or comments and cannot be deleted", map[string]any{
				"created_tickets": footprint.CreatedTickets,
				"comments":        footprint.Comments,
			})
		}
		assigned, err := repos.Tickets.ListAll(ctx, repository.TicketFilter{AssigneeID: &user.ID})
		if err != nil {
			return mapRepoError(err, "ticket")
		}
		writer := newActivityWriter(repos, actor)
		if err := writer.detached(ctx, assigned, domain.ActivityAgentUnassigned,
			fmt.Sprintf("Unassigned from %s (account deleted)", user.Username), domain.IDValue(&user.ID)); err != nil {
			return err
		}
		if err := writer.target(ctx, domain.ActivityUserDeleted,
			fmt.Sprintf("User %s deleted", user.Username),
			domain.TargetUser, user.ID, domain.StringValue(user.Email), domain.NoValue()); err != nil {
			return err
		}
		return mapRepoError(repos.Users.Delete(ctx, user.ID), "user")
	})
}
