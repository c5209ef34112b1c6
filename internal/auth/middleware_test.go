package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func newMiddlewareApp(t *testing.T) (*fiber.App, *TokenManager, *domain.User, cache.RevocationList) {
	t.Helper()
	store := memory.NewStore()
	user := &domain.User{Username: "agent", Email: "agent@example.com", PasswordHash: "x", Role: domain.RoleAgent}
	require.NoError(t, store.Repos().Users.Create(context.Background(), user))

	tokens := NewTokenManager("test-secret", 30)
	revoked := cache.NewMemoryRevocationList()
	mw := NewAuthMiddleware(tokens, store.Repos().Users, revoked, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		actor, err := ActorFromContext(c)
		if err != nil {
			return err
		}
		return c.SendString(actor.Username)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tokens, user, revoked
}

func TestAuthMiddleware(t *testing.T) {
	app, tokens, user, revoked := newMiddlewareApp(t)
	issued, err := tokens.GenerateToken(user)
	require.NoError(t, err)

	call := func(path, header string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, call("/me", ""))
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Token abc"))
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Bearer nope"))
	assert.Equal(t, http.StatusOK, call("/me", "Bearer "+issued.Token))
	assert.Equal(t, http.StatusForbidden, call("/admin", "Bearer "+issued.Token))

	require.NoError(t, revoked.Revoke(context.Background(), issued.ID, issued.ExpiresAt))
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Bearer "+issued.Token))
}

func TestAuthMiddlewareUnknownUser(t *testing.T) {
	app, tokens, _, _ := newMiddlewareApp(t)
	issued, err := tokens.GenerateToken(&domain.User{ID: 999, Role: domain.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+issued.Token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
