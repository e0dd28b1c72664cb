package kanban

import "slices"

// Role is the actor's role inside its accounts.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleAgent         Role = "agent"
)

// Actor is the authenticated user performing a request.
type Actor struct {
	UserID     string
	Role       Role
	AccountIDs []int64
}

// MemberOf reports whether the actor belongs to accountID.
func (a Actor) MemberOf(accountID int64) bool {
	return slices.Contains(a.AccountIDs, accountID)
}

// RequestContext scopes a single call: the account addressed by the request
// and the actor performing it.
type RequestContext struct {
	AccountID int64
	Actor     Actor
}
