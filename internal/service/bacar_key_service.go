package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/secrets"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// BacarKeyService stores device credentials with the password sealed at rest.
type BacarKeyService struct {
	store  repository.Store
	gate   *auth.Gate
	sealer *secrets.Sealer
}

// BacarKeyInput is the create payload.
type BacarKeyInput struct {
	DeviceUser string
	Username   string
	Password   string
	Notes      *string
}

// BacarKeyPatch is a partial update.
type BacarKeyPatch struct {
	DeviceUser *string
	Username   *string
	Password   *string
	Notes      *string
}

// NewBacarKeyService constructs the service. The sealer encrypts key values at rest.
func NewBacarKeyService(store repository.Store, gate *auth.Gate, sealer *secrets.Sealer) *BacarKeyService {
	return &BacarKeyService{store: store, gate: gate, sealer: sealer}
}

// List returns every record whose device user or username contains search.
func (s *BacarKeyService) List(ctx context.Context, actor domain.Actor, search string) ([]domain.BacarKey, error) {
	if err := s.gate.Authorize(actor, auth.ResourceBacarKey, auth.ActionList); err != nil {
		return nil, err
	}
	keys, err := s.store.Repos().BacarKeys.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, mapRepoError(err, "bacar_key")
	}
	for i := range keys {
		if err := s.open(&keys[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (s *BacarKeyService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.BacarKey, error) {
	key, err := s.load(ctx, s.store.Repos(), id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(actor, auth.ResourceBacarKey, auth.ActionRead); err != nil {
		return nil, err
	}
	if err := s.open(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *BacarKeyService) Create(ctx context.Context, actor domain.Actor, input BacarKeyInput) (*domain.BacarKey, error) {
	if err := s.gate.Authorize(actor, auth.ResourceBacarKey, auth.ActionCreate); err != nil {
		return nil, err
	}
	key := &domain.BacarKey{
		DeviceUser: strings.TrimSpace(input.DeviceUser),
		Username:   strings.TrimSpace(input.Username),
		Notes:      trimmedPtr(input.Notes),
	}
	if key.DeviceUser == "" || key.Username == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("device_user, username and password are required", nil)
	}
	if actor.ID > 0 {
		creator := actor.ID
		key.CreatedByUserID = &creator
	}
	sealed, err := s.sealer.Seal(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	key.Password = sealed

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.BacarKeys.Create(ctx, key); err != nil {
			return mapRepoError(err, "bacar_key")
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityBacarKeyCreated,
			fmt.Sprintf("BacarKey for %s created", key.DeviceUser),
			domain.TargetSystem, key.ID, domain.NoValue(), domain.StringValue(key.DeviceUser))
	})
	if err != nil {
		return nil, err
	}
	key.Password = input.Password
	return key, nil
}

func (s *BacarKeyService) Update(ctx context.Context, actor domain.Actor, id int64, patch BacarKeyPatch) (*domain.BacarKey, error) {
	var key *domain.BacarKey
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		key, err = s.load(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(actor, auth.ResourceBacarKey, auth.ActionUpdate); err != nil {
			return err
		}

		var fields []string
		if v := trimmedPtr(patch.DeviceUser); v != nil && *v != key.DeviceUser {
			if *v == "" {
				return apperrors.NewValidationError("device_user must not be empty", map[string]any{"field": "device_user"})
			}
			key.DeviceUser = *v
			fields = append(fields, "device_user")
		}
		if v := trimmedPtr(patch.Username); v != nil && *v != key.Username {
			if *v == "" {
				return apperrors.NewValidationError("username must not be empty", map[string]any{"field": "username"})
			}
			key.Username = *v
			fields = append(fields, "username")
		}
		if patch.Password != nil {
			if *patch.Password == "" {
				return apperrors.NewValidationError("password must not be empty", map[string]any{"field": "password"})
			}
			sealed, err := s.sealer.Seal(*patch.Password)
			if err != nil {
				return apperrors.NewInternalError(err)
			}
			key.Password = sealed
			fields = append(fields, "password")
		}
		if patch.Notes != nil {
			key.Notes = trimmedPtr(patch.Notes)
			fields = append(fields, "notes")
		}
		if len(fields) == 0 {
			return nil
		}

		if err := repos.BacarKeys.Update(ctx, key); err != nil {
			return mapRepoError(err, "bacar_key")
		}
		changed, err := domain.JSONValue(fields)
		if err != nil {
			return err
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityBacarKeyUpdated,
			fmt.Sprintf("BacarKey for %s updated: %s", key.DeviceUser, strings.Join(fields, ", ")),
			domain.TargetSystem, key.ID, domain.NoValue(), changed)
	})
	if err != nil {
		return nil, err
	}
	if err := s.open(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *BacarKeyService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		key, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(actor, auth.ResourceBacarKey, auth.ActionDelete); err != nil {
			return err
		}
		if err := repos.BacarKeys.Delete(ctx, key.ID); err != nil {
			return mapRepoError(err, "bacar_key")
		}
		return newActivityWriter(repos, actor).target(ctx, domain.ActivityBacarKeyDeleted,
			fmt.Sprintf("BacarKey for %s deleted", key.DeviceUser),
			domain.TargetSystem, key.ID, domain.StringValue(key.DeviceUser), domain.NoValue())
	})
}

func (s *BacarKeyService) load(ctx context.Context, repos repository.Repositories, id int64) (*domain.BacarKey, error) {
	key, err := repos.BacarKeys.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundWithID("bacar_key", id)
		}
		return nil, mapRepoError(err, "bacar_key")
	}
	return key, nil
}

func (s *BacarKeyService) open(key *domain.BacarKey) error {
	plain, err := s.sealer.Open(key.Password)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("bacar key %d: %w", key.ID, err))
	}
	key.Password = plain
	return nil
}
