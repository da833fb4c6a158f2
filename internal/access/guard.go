// Package access decides who may mutate a report. It is a pure function of
// the actor, the report owner and the requested operation.
package access

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/google/uuid"
)

type Role int

const (
	RoleMember Role = iota + 1
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole maps the persisted/claimed role string. Anything unknown is an
// error rather than a silent downgrade to member.
func ParseRole(s string) (Role, error) {
	switch s {
	case "member", "user", "":
		return RoleMember, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

type Operation int

const (
	OpEdit Operation = iota + 1
	OpDelete
	OpAdminUpdate
)

func (o Operation) String() string {
	switch o {
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	case OpAdminUpdate:
		return "adminUpdate"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanMutate returns nil when actor may perform op on a report owned by owner,
// and an apperr Forbidden error otherwise.
func CanMutate(actor Actor, owner uuid.UUID, op Operation) error {
	switch op {
	case OpEdit, OpDelete, OpAdminUpdate:
	default:
		return apperr.Forbidden(fmt.Sprintf("unknown operation %s", op))
	}

	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleMember:
		if op == OpAdminUpdate {
			return apperr.Forbidden("admin access required")
		}
		if actor.ID != uuid.Nil && actor.ID == owner {
			return nil
		}
		return apperr.Forbidden(fmt.Sprintf("you do not have permission to %s this report", op))
	default:
		return apperr.Forbidden(fmt.Sprintf("unknown role %s", actor.Role))
	}
}
