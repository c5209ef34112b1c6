package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func int64Ptr(v int64) *int64 { return &v }

func TestGateMatrix(t *testing.T) {
	gate, err := NewGate()
	require.NoError(t, err)

	tests := []struct {
		name   string
		role   domain.Role
		res    Resource
		act    Action
		scopes []Scope
		want   bool
	}{
		{"admin triages any ticket", domain.RoleAdmin, ResourceTicket, ActionTriage, nil, true},
		{"admin deletes users", domain.RoleAdmin, ResourceUser, ActionDelete, nil, true},
		{"admin reads reports", domain.RoleAdmin, ResourceReport, ActionRead, nil, true},
		{"agent triages department ticket", domain.RoleAgent, ResourceTicket, ActionTriage, []Scope{ScopeDepartment}, true},
		{"agent triages assigned ticket", domain.RoleAgent, ResourceTicket, ActionTriage, []Scope{ScopeAssignee}, true},
		{"agent cannot touch unrelated ticket", domain.RoleAgent, ResourceTicket, ActionUpdate, nil, false},
		{"agent cannot triage as owner", domain.RoleAgent, ResourceTicket, ActionTriage, []Scope{ScopeOwner}, false},
		{"agent lists users", domain.RoleAgent, ResourceUser, ActionList, nil, true},
		{"agent cannot delete departments", domain.RoleAgent, ResourceDepartment, ActionDelete, nil, false},
		{"agent cannot read reports", domain.RoleAgent, ResourceReport, ActionRead, nil, false},
		{"client creates tickets", domain.RoleClient, ResourceTicket, ActionCreate, nil, true},
		{"client edits own ticket", domain.RoleClient, ResourceTicket, ActionUpdate, []Scope{ScopeOwner}, true},
		{"client cannot triage own ticket", domain.RoleClient, ResourceTicket, ActionTriage, []Scope{ScopeOwner}, false},
		{"client cannot edit others ticket", domain.RoleClient, ResourceTicket, ActionUpdate, nil, false},
		{"client cannot list users", domain.RoleClient, ResourceUser, ActionList, nil, false},
		{"client reads self", domain.RoleClient, ResourceUser, ActionRead, []Scope{ScopeSelf}, true},
		{"client cannot manage bacar keys", domain.RoleClient, ResourceBacarKey, ActionList, nil, false},
		{"notifications are self only even for admin", domain.RoleAdmin, ResourceNotification, ActionUpdate, nil, false},
		{"own notification", domain.RoleAdmin, ResourceNotification, ActionUpdate, []Scope{ScopeSelf}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Allowed(tt.role, tt.res, tt.act, tt.scopes...))
		})
	}
}

func TestGateAuthorizeReturnsForbidden(t *testing.T) {
	gate, err := NewGate()
	require.NoError(t, err)

	err = gate.Authorize(domain.Actor{ID: 3, Role: domain.RoleClient}, ResourceBacarKey, ActionRead)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestGrantedScopes(t *testing.T) {
	gate, err := NewGate()
	require.NoError(t, err)

	assert.ElementsMatch(t, []Scope{ScopeDepartment, ScopeAssignee}, gate.GrantedScopes(domain.RoleAgent, ResourceTicket, ActionList))
	assert.Equal(t, []Scope{ScopeOwner}, gate.GrantedScopes(domain.RoleClient, ResourceTicket, ActionList))
	assert.Empty(t, gate.GrantedScopes(domain.RoleClient, ResourceReport, ActionRead))
}

func TestTicketScopes(t *testing.T) {
	ticket := &domain.Ticket{UserID: 10, DepartmentID: int64Ptr(2), AssignedToUserID: int64Ptr(20)}

	assert.Equal(t, []Scope{ScopeOwner}, TicketScopes(domain.Actor{ID: 10, Role: domain.RoleClient}, ticket))
	assert.Equal(t, []Scope{ScopeDepartment, ScopeAssignee}, TicketScopes(domain.Actor{ID: 20, Role: domain.RoleAgent, DepartmentID: int64Ptr(2)}, ticket))
	assert.Empty(t, TicketScopes(domain.Actor{ID: 30, Role: domain.RoleAgent, DepartmentID: int64Ptr(5)}, ticket))
}
