package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/secrets"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "root-password"
)

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	gate, err := auth.NewGate()
	require.NoError(t, err)
	sealer, err := secrets.NewSealer("http-test-key")
	require.NoError(t, err)
	tokens := auth.NewTokenManager("http-test-secret", 60)
	hasher := auth.NewPasswordHasher(4)
	revoked := cache.NewMemoryRevocationList()
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Unread:     cache.NewMemoryUnreadCounter(time.Minute),
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notifications.RegisterHandlers()
	authService := service.NewAuthService(service.AuthDependencies{
		Store:       store,
		Tokens:      tokens,
		Hasher:      hasher,
		Revocations: revoked,
		Logger:      logger,
	})
	require.NoError(t, authService.EnsureAdmin(context.Background(), config.BootstrapConfig{
		AdminEmail:    adminEmail,
		AdminUsername: "root",
		AdminPassword: adminPassword,
	}))

	tickets := service.NewTicketService(service.TicketDependencies{Store: store, Gate: gate, Dispatcher: dispatcher, Logger: logger})
	users := service.NewUserService(service.UserDependencies{Store: store, Gate: gate, Hasher: hasher, Dispatcher: dispatcher, Logger: logger})

	app := httptransport.NewApp("helpdesk-test", logger, metrics,
		httptransport.MiddlewareConfig{Timeout: 5 * time.Second},
		httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler("helpdesk-test", "test", nil, nil, metrics),
			Auth:           handlers.NewAuthHandler(authService),
			Users:          handlers.NewUsersHandler(users),
			Departments:    handlers.NewDepartmentsHandler(service.NewDepartmentService(store, gate)),
			Tickets:        handlers.NewTicketsHandler(tickets),
			Notifications:  handlers.NewNotificationsHandler(notifications),
			BacarKeys:      handlers.NewBacarKeysHandler(service.NewBacarKeyService(store, gate, sealer)),
			Reports:        handlers.NewReportsHandler(service.NewReportService(store, gate, notifications, nil), service.NewActivityService(store, gate)),
			AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Repos().Users, revoked, logger),
			Gate:           gate,
		})
	return &testServer{t: t, app: app}
}

// do sends a request and decodes the JSON body, if any, into out.
func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(s.t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(s.t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func (s *testServer) login(email, password string) (string, int64) {
	s.t.Helper()
	var resp struct {
		Token string `json:"token"`
		ID    int64  `json:"id"`
	}
	status := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password}, &resp)
	require.Equal(s.t, http.StatusOK, status)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token, resp.ID
}

type errorBody struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var live map[string]any
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/health/live", "", nil, &live))
	assert.Equal(t, "alive", live["status"])

	var ready struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/health/ready", "", nil, &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "in-memory", ready.Dependencies["postgres"])
	assert.Equal(t, "in-memory", ready.Dependencies["redis"])

	var snap observability.MetricsSnapshot
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/health/metrics", "", nil, &snap))
	assert.NotEmpty(t, snap.Requests)
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)

	var body errorBody
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/tickets", "", nil, &body))
	assert.False(t, body.Success)
	assert.Equal(t, "UNAUTHORIZED", body.Code)

	body = errorBody{}
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/nowhere", "", nil, &body))
	assert.Equal(t, "NOT_FOUND", body.Code)

	body = errorBody{}
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/auth/register", "", `{"username":`, &body))
	assert.Equal(t, "VALIDATION_FAILED", body.Code)

	body = errorBody{}
	status := srv.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "x", "email": "not-an-email", "password": "123"}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Details, "email")
	assert.Contains(t, body.Details, "password")
}

func TestTicketFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := srv.login(adminEmail, adminPassword)

	var agent struct {
		ID int64 `json:"id"`
	}
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/users", adminToken, map[string]any{
		"username": "agent", "email": "agent@example.com", "password": "secret1", "role": "agent",
	}, &agent))

	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "client", "email": "Client@Example.com", "password": "secret1",
	}, nil))
	clientToken, clientID := srv.login("client@example.com", "secret1")
	agentToken, _ := srv.login("agent@example.com", "secret1")

	var ticket struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
		UserID   int64  `json:"user_id"`
	}
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/tickets", clientToken, map[string]any{
		"title": "Printer broken", "description": "Paper jam on floor 2",
	}, &ticket))
	assert.Equal(t, "open", ticket.Status)
	assert.Equal(t, "medium", ticket.Priority)
	assert.Equal(t, clientID, ticket.UserID)
	ticketPath := "/api/tickets/" + strconv.FormatInt(ticket.ID, 10)

	var body errorBody
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, ticketPath, agentToken, nil, &body),
		"unassigned tickets outside the agent's department stay hidden")

	var updated struct {
		Status           string `json:"status"`
		AssignedToUserID *int64 `json:"assigned_to_user_id"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, ticketPath, adminToken, map[string]any{
		"assigned_to_user_id": agent.ID, "status": "in-progress",
	}, &updated))
	assert.Equal(t, "in-progress", updated.Status)
	require.NotNil(t, updated.AssignedToUserID)
	assert.Equal(t, agent.ID, *updated.AssignedToUserID)

	var count struct {
		Count int64 `json:"count"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/notifications/unread-count", clientToken, nil, &count))
	assert.EqualValues(t, 1, count.Count)
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/notifications/unread-count", agentToken, nil, &count))
	assert.EqualValues(t, 1, count.Count)

	var comment struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, ticketPath+"/comments", agentToken,
		map[string]string{"message": "On my way"}, &comment))
	assert.Equal(t, "On my way", comment.Message)

	var detail struct {
		Comments []map[string]any `json:"comments"`
		Activity []map[string]any `json:"activity"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, ticketPath, clientToken, nil, &detail))
	assert.Len(t, detail.Comments, 1)
	assert.NotEmpty(t, detail.Activity)

	var marked struct {
		Updated int64 `json:"updated"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, "/api/notifications/mark-all-read", clientToken, nil, &marked))
	assert.EqualValues(t, 2, marked.Updated)
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/notifications/unread-count", clientToken, nil, &count))
	assert.Zero(t, count.Count)

	var list []map[string]any
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/tickets?status=in-progress,resolved", clientToken, nil, &list))
	assert.Len(t, list, 1)
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/tickets?status=closed", clientToken, nil, &list))
	assert.Empty(t, list)
}

func TestAdminOnlyRoutes(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := srv.login(adminEmail, adminPassword)
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "client", "email": "client@example.com", "password": "secret1",
	}, nil))
	clientToken, _ := srv.login("client@example.com", "secret1")

	var body errorBody
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, "/api/admin/reports", clientToken, nil, &body))
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, "/api/bacar-keys", clientToken, nil, &body))

	var report struct {
		StartDate string           `json:"start_date"`
		EndDate   string           `json:"end_date"`
		Daily     []map[string]any `json:"daily"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/admin/reports?startDate=2024-01-01&endDate=2024-01-07", adminToken, nil, &report))
	assert.Equal(t, "2024-01-01", report.StartDate)
	assert.Equal(t, "2024-01-07", report.EndDate)
	assert.Len(t, report.Daily, 7)

	body = errorBody{}
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/admin/reports?startDate=yesterday", adminToken, nil, &body))
	assert.Equal(t, "VALIDATION_FAILED", body.Code)

	var key struct {
		ID       int64  `json:"id"`
		Password string `json:"password"`
	}
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/bacar-keys", adminToken, map[string]string{
		"device_user": "PC-042", "username": "local-admin", "password": "hunter2",
	}, &key))
	assert.Equal(t, "hunter2", key.Password)

	var dashboard struct {
		Total int `json:"total"`
	}
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/dashboard/metrics", clientToken, nil, &dashboard))
	assert.Zero(t, dashboard.Total)
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.login(adminEmail, adminPassword)

	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/auth/me", token, nil, &me))
	assert.Equal(t, adminEmail, me.Email)
	assert.Equal(t, "admin", me.Role)

	require.Equal(t, http.StatusNoContent, srv.do(http.MethodPost, "/api/auth/logout", token, nil, nil))

	var body errorBody
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/auth/me", token, nil, &body))
	assert.Equal(t, "token has been revoked", body.Message)
}

func TestNullClearsTicketDepartment(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := srv.login(adminEmail, adminPassword)

	var dept struct {
		ID int64 `json:"id"`
	}
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/departments", adminToken, map[string]string{"name": "Support"}, &dept))
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "client", "email": "client@example.com", "password": "secret1",
	}, nil))
	clientToken, _ := srv.login("client@example.com", "secret1")

	var ticket struct {
		ID           int64  `json:"id"`
		DepartmentID *int64 `json:"department_id"`
	}
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/tickets", clientToken, map[string]any{
		"title": "VPN down", "department_id": dept.ID,
	}, &ticket))
	require.NotNil(t, ticket.DepartmentID)

	path := "/api/tickets/" + strconv.FormatInt(ticket.ID, 10)
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, path, adminToken, map[string]any{"title": "VPN still down"}, &ticket))
	require.NotNil(t, ticket.DepartmentID, "absent field leaves the department alone")

	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, path, adminToken, `{"department_id": null}`, &ticket))
	assert.Nil(t, ticket.DepartmentID)
}
