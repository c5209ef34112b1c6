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
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	store   repository.Store
	tokens  *auth.TokenManager
	hasher  *auth.PasswordHasher
	revoked cache.RevocationList
	logger  *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Store       repository.Store
	Tokens      *auth.TokenManager
	Hasher      *auth.PasswordHasher
	Revocations cache.RevocationList
	Logger      *zap.Logger
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult carries the issued token and the account it belongs to.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:   deps.Store,
		tokens:  deps.Tokens,
		hasher:  deps.Hasher,
		revoked: deps.Revocations,
		logger:  logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters long", auth.MinPasswordLength),
			map[string]any{"field": "password"})
	}
	return nil
}

// Register creates a client account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
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
		Role:         domain.RoleClient,
	}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.GetByEmail(ctx, user.Email); err == nil {
			return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		} else if !errors.Is(err, repository.ErrNotFound) {
			return mapRepoError(err, "user")
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return mapRepoError(err, "user")
		}
		return newActivityWriter(repos, domain.ActorFromUser(user)).target(ctx,
			domain.ActivityUserRegistered, fmt.Sprintf("%s registered", user.Username),
			domain.TargetUser, user.ID, domain.NoValue(), domain.StringValue(user.Email))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, mapRepoError(err, "user")
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	issued, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: user}, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if principal == nil || principal.TokenID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.revoked.Revoke(ctx, principal.TokenID, principal.TokenExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// EnsureAdmin seeds the bootstrap admin when configured and not yet present.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	email := normalizeEmail(cfg.AdminEmail)
	if email == "" {
		return nil
	}
	if _, err := s.store.Repos().Users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err := checkPassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	hash, err := s.hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		username = "admin"
	}
	admin := &domain.User{Username: username, Email: email, PasswordHash: hash, Role: domain.RoleAdmin}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, admin); err != nil {
			return err
		}
		return newActivityWriter(repos, domain.ActorFromUser(admin)).target(ctx,
			domain.ActivityUserCreated, fmt.Sprintf("Bootstrap admin %s created", admin.Username),
			domain.TargetUser, admin.ID, domain.NoValue(), domain.StringValue(string(admin.Role)))
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
