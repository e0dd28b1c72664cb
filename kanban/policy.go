package kanban

import (
	"context"

	"kanban-api/domain"
)

// Action names a capability checked by the policy.
type Action string

const (
	ActionIndex       Action = "index"
	ActionShow        Action = "show"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDestroy     Action = "destroy"
	ActionMoveToStage Action = "move_to_stage"
	ActionReorder     Action = "reorder"
)

// Resource is what an action is performed on. ItemID is zero for
// collection-level checks.
type Resource struct {
	AccountID int64
	ItemID    int64
}

// Policy decides whether actor may perform action on resource. A deny is
// reported as domain.ErrForbidden.
type Policy interface {
	Check(ctx context.Context, actor Actor, resource Resource, action Action) error
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, actor Actor, resource Resource, action Action) error

func (f PolicyFunc) Check(ctx context.Context, actor Actor, resource Resource, action Action) error {
	return f(ctx, actor, resource, action)
}

// RolePolicy grants administrators every action and agents everything but
// destroy, always within the actor's own accounts.
type RolePolicy struct{}

func (RolePolicy) Check(_ context.Context, actor Actor, resource Resource, action Action) error {
	if actor.UserID == "" || !actor.MemberOf(resource.AccountID) {
		return domain.ErrForbidden
	}
	switch actor.Role {
	case RoleAdministrator:
		return nil
	case RoleAgent:
		if action == ActionDestroy {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}
