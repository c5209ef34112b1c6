package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// DepartmentService manages the department catalogue.
type DepartmentService struct {
	store repository.Store
	gate  *auth.Gate
}

// DepartmentInput is the create payload.
type DepartmentInput struct {
	Name        string
	Description string
}

// DepartmentPatch is a partial update.
type DepartmentPatch struct {
	Name        *string
	Description *string
}

// NewDepartmentService constructs the service.
func NewDepartmentService(store repository.Store, gate *auth.Gate) *DepartmentService {
	return &DepartmentService{store: store, gate: gate}
}

func (s *DepartmentService) List(ctx context.Context, actor domain.Actor) ([]domain.Department, error) {
	if err := s.gate.Authorize(actor, auth.ResourceDepartment, auth.ActionList); err != nil {
		return nil, err
	}
	items, err := s.store.Repos().Departments.List(ctx)
	if err != nil {
		return nil, mapRepoError(err, "department")
	}
	return items, nil
}

func (s *DepartmentService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Department, error) {
	dept, err := loadDepartment(ctx, s.store.Repos(), id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(actor, auth.ResourceDepartment, auth.ActionRead); err != nil {
		return nil, err
	}
	return dept, nil
}

func loadDepartment(ctx context.Context, repos repository.Repositories, id int64) (*domain.Department, error) {
	dept, err := repos.Departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundWithID("department", id)
		}
		return nil, mapRepoError(err, "department")
	}
	return dept, nil
}

func (s *DepartmentService) Create(ctx context.Context, actor domain.Actor, input DepartmentInput) (*domain.Department, error) {
	if err := s.gate.Authorize(actor, auth.ResourceDepartment, auth.ActionCreate); err != nil {
		return nil, err
	}
	dept := &domain.Department{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}
	if dept.Name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Departments.Create(ctx, dept); err != nil {
			return departmentError(err, dept.Name)
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityDepartmentCreated,
			fmt.Sprintf("Department %s created", dept.Name),
			domain.TargetDepartment, dept.ID, domain.NoValue(), domain.StringValue(dept.Name))
	})
	if err != nil {
		return nil, err
	}
	return dept, nil
}

func (s *DepartmentService) Update(ctx context.Context, actor domain.Actor, id int64, patch DepartmentPatch) (*domain.Department, error) {
	var dept *domain.Department
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		dept, err = loadDepartment(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(actor, auth.ResourceDepartment, auth.ActionUpdate); err != nil {
			return err
		}

		oldName := dept.Name
		changed := false
		if name := trimmedPtr(patch.Name); name != nil && *name != dept.Name {
			if *name == "" {
				return apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
			}
			dept.Name = *name
			changed = true
		}
		if description := trimmedPtr(patch.Description); description != nil && *description != dept.Description {
			dept.Description = *description
			changed = true
		}
		if !changed {
			return nil
		}

		if err := repos.Departments.Update(ctx, dept); err != nil {
			return departmentError(err, dept.Name)
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityDepartmentUpdated,
			fmt.Sprintf("Department %s updated", dept.Name),
			domain.TargetDepartment, dept.ID, domain.StringValue(oldName), domain.StringValue(dept.Name))
	})
	if err != nil {
		return nil, err
	}
	return dept, nil
}

// Delete removes a department; tickets and users that referenced it lose the reference.
// Each affected ticket gets a department_changed activity row.
func (s *DepartmentService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		dept, err := loadDepartment(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(actor, auth.ResourceDepartment, auth.ActionDelete); err != nil {
			return err
		}
		routed, err := repos.Tickets.ListAll(ctx, repository.TicketFilter{DepartmentID: &dept.ID})
		if err != nil {
			return mapRepoError(err, "ticket")
		}
		writer := newActivityWriter(repos, actor)
		if err := writer.detached(ctx, routed, domain.ActivityDepartmentChanged,
			fmt.Sprintf("Department changed from %s to none (department deleted)", dept.Name), domain.IDValue(&dept.ID)); err != nil {
			return err
		}
		if err := repos.Departments.Delete(ctx, dept.ID); err != nil {
			return mapRepoError(err, "department")
		}
		return writer.target(ctx, domain.ActivityDepartmentDeleted,
			fmt.Sprintf("Department %s deleted", dept.Name),
			domain.TargetDepartment, dept.ID, domain.StringValue(dept.Name), domain.NoValue())
	})
}

func departmentError(err error, name string) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewConflict("department name already exists", map[string]any{"name": name})
	}
	return mapRepoError(err, "department")
}
