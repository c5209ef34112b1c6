package auth

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Resource names an entity family guarded by the gate.
type Resource string

const (
	ResourceTicket       Resource = "ticket"
	ResourceUser         Resource = "user"
	ResourceDepartment   Resource = "department"
	ResourceNotification Resource = "notification"
	ResourceActivityLog  Resource = "activity_log"
	ResourceBacarKey     Resource = "bacar_key"
	ResourceReport       Resource = "report"
	ResourceDashboard    Resource = "dashboard"
)

// Action is an operation on a resource.
type Action string

const (
	ActionList    Action = "list"
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionTriage  Action = "triage"
	ActionDelete  Action = "delete"
	ActionComment Action = "comment"
)

// Scope is the row-level predicate a policy grants. ScopeAny grants every row.
type Scope string

const (
	ScopeAny        Scope = "*"
	ScopeOwner      Scope = "owner"
	ScopeDepartment Scope = "department"
	ScopeAssignee   Scope = "assignee"
	ScopeSelf       Scope = "self"
)

const gateModel = `
[request_definition]
r = sub, obj, act, scope

[policy_definition]
p = sub, obj, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act && (p.scope == "*" || p.scope == r.scope)
`

func defaultPolicies() [][]string {
	var policies [][]string
	grant := func(role domain.Role, res Resource, scopes []Scope, actions ...Action) {
		for _, act := range actions {
			for _, scope := range scopes {
				policies = append(policies, []string{string(role), string(res), string(act), string(scope)})
			}
		}
	}
	all := []Scope{ScopeAny}
	self := []Scope{ScopeSelf}
	staffTickets := []Scope{ScopeDepartment, ScopeAssignee}

	for _, res := range []Resource{ResourceTicket, ResourceUser, ResourceDepartment, ResourceBacarKey} {
		grant(domain.RoleAdmin, res, all, ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete)
	}
	grant(domain.RoleAdmin, ResourceTicket, all, ActionTriage, ActionComment)
	grant(domain.RoleAdmin, ResourceNotification, self, ActionList, ActionRead, ActionUpdate, ActionDelete)
	grant(domain.RoleAdmin, ResourceActivityLog, all, ActionList)
	grant(domain.RoleAdmin, ResourceReport, all, ActionRead)
	grant(domain.RoleAdmin, ResourceDashboard, all, ActionRead)

	grant(domain.RoleAgent, ResourceTicket, staffTickets, ActionList, ActionRead, ActionUpdate, ActionTriage, ActionComment)
	grant(domain.RoleAgent, ResourceUser, all, ActionList, ActionRead)
	grant(domain.RoleAgent, ResourceUser, self, ActionUpdate)
	grant(domain.RoleAgent, ResourceDepartment, all, ActionList, ActionRead)
	grant(domain.RoleAgent, ResourceNotification, self, ActionList, ActionRead, ActionUpdate, ActionDelete)
	grant(domain.RoleAgent, ResourceActivityLog, self, ActionList)
	grant(domain.RoleAgent, ResourceDashboard, all, ActionRead)

	grant(domain.RoleClient, ResourceTicket, all, ActionCreate)
	grant(domain.RoleClient, ResourceTicket, []Scope{ScopeOwner}, ActionList, ActionRead, ActionUpdate, ActionComment)
	grant(domain.RoleClient, ResourceUser, self, ActionRead, ActionUpdate)
	grant(domain.RoleClient, ResourceDepartment, all, ActionList)
	grant(domain.RoleClient, ResourceNotification, self, ActionList, ActionRead, ActionUpdate, ActionDelete)
	grant(domain.RoleClient, ResourceActivityLog, self, ActionList)
	grant(domain.RoleClient, ResourceDashboard, all, ActionRead)

	return policies
}

// Gate is the single place that decides whether a role may perform an action on a row.
type Gate struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
}

// NewGate loads the role x resource x action x scope matrix.
func NewGate() (*Gate, error) {
	m, err := model.NewModelFromString(gateModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse permission model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(defaultPolicies()); err != nil {
		return nil, fmt.Errorf("failed to load permission policies: %w", err)
	}
	return &Gate{enforcer: enforcer}, nil
}

// Allowed reports whether role may act on a row matching any of the given scopes. With no
// scopes only an unrestricted grant passes.
func (g *Gate) Allowed(role domain.Role, res Resource, act Action, scopes ...Scope) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(scopes) == 0 {
		scopes = []Scope{ScopeAny}
	}
	for _, scope := range scopes {
		ok, err := g.enforcer.Enforce(string(role), string(res), string(act), string(scope))
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Authorize is Allowed returning a Forbidden DomainError on denial.
func (g *Gate) Authorize(actor domain.Actor, res Resource, act Action, scopes ...Scope) error {
	if g.Allowed(actor.Role, res, act, scopes...) {
		return nil
	}
	return apperrors.NewForbidden(fmt.Sprintf("not allowed to %s %s", act, res))
}

// GrantedScopes lists the scopes a role holds for an action, empty when it has none.
func (g *Gate) GrantedScopes(role domain.Role, res Resource, act Action) []Scope {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rules, err := g.enforcer.GetFilteredPolicy(0, string(role), string(res), string(act))
	if err != nil {
		return nil
	}
	scopes := make([]Scope, 0, len(rules))
	for _, rule := range rules {
		if len(rule) == 4 {
			scopes = append(scopes, Scope(rule[3]))
		}
	}
	return scopes
}

// TicketScopes lists the relations between the actor and a ticket.
func TicketScopes(actor domain.Actor, ticket *domain.Ticket) []Scope {
	var scopes []Scope
	if ticket.UserID == actor.ID {
		scopes = append(scopes, ScopeOwner)
	}
	if actor.DepartmentID != nil && ticket.DepartmentID != nil && *actor.DepartmentID == *ticket.DepartmentID {
		scopes = append(scopes, ScopeDepartment)
	}
	if ticket.AssignedToUserID != nil && *ticket.AssignedToUserID == actor.ID {
		scopes = append(scopes, ScopeAssignee)
	}
	return scopes
}

// SelfScope returns ScopeSelf when the actor owns the row.
func SelfScope(actor domain.Actor, ownerID int64) []Scope {
	if actor.ID == ownerID {
		return []Scope{ScopeSelf}
	}
	return nil
}
