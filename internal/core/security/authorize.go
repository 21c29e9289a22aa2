// Package security provides authorization and access control.
//
// Access decisions are pure functions over a Principal snapshot: no I/O,
// no ambient session state. Handlers resolve the principal once per request
// and pass it explicitly to every service call.
package security

import (
	"fmt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

// Role is the coarse-grained permission tier of a user.
type Role string

const (
	RoleNormal     Role = "normal"
	RoleManagement Role = "management"
	RoleAdmin      Role = "admin"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleNormal, RoleManagement, RoleAdmin:
		return true
	}
	return false
}

// Action identifies what the caller is trying to do.
type Action string

const (
	ActionRead       Action = "read"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionAssign     Action = "assign"
	ActionChangeRole Action = "change_role"
)

// Principal is the resolved identity of the caller for one request.
type Principal struct {
	UserID      id.ID
	Role        Role
	DivisionIDs []id.ID
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// MemberOf reports whether the principal is assigned to the division.
// Membership is always compared by id, never by name.
func (p Principal) MemberOf(divisionID id.ID) bool {
	for _, d := range p.DivisionIDs {
		if d == divisionID {
			return true
		}
	}
	return false
}

// Target identifies the entity an action applies to.
// For credential actions DivisionID is the owning division;
// admin-scope actions (assign, change_role) carry a zero target.
type Target struct {
	DivisionID id.ID
}

// CredentialIn builds a target for a credential owned by the division.
func CredentialIn(divisionID id.ID) Target {
	return Target{DivisionID: divisionID}
}

// CanAccess decides whether the principal may perform the action on the
// target. Deny is a value, not an error; callers map it to a 403 response.
//
// Rule precedence:
//  1. admin is allowed every action unconditionally
//  2. assign/change_role are admin-only
//  3. read and create require membership of the target division
//  4. normal users never update or delete, even within their own divisions
//  5. management users update/delete only within their own divisions
func CanAccess(p Principal, action Action, target Target) bool {
	if p.IsAdmin() {
		return true
	}

	switch action {
	case ActionAssign, ActionChangeRole:
		return false

	case ActionRead, ActionCreate:
		return p.MemberOf(target.DivisionID)

	case ActionUpdate, ActionDelete:
		if p.Role != RoleManagement {
			return false
		}
		return p.MemberOf(target.DivisionID)
	}

	return false
}

// Require maps a deny decision to a Forbidden application error.
func Require(p Principal, action Action, target Target) error {
	if CanAccess(p, action, target) {
		return nil
	}
	return apperror.NewForbidden(
		fmt.Sprintf("access denied: %s not permitted", action),
	).WithDetail("action", string(action)).WithDetail("role", string(p.Role))
}
