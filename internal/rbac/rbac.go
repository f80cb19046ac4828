// Package rbac resolves who a request is allowed to act as. Authorization is
// decided once at the boundary and the resulting capability is threaded through
// every calendar read and mutation path.
package rbac

import "errors"

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// ErrForbidden is returned when a principal asks to act on another owner's
// calendar without the elevated capability.
var ErrForbidden = errors.New("forbidden")

// Capability is a closed two-variant type: a standard capability is pinned to
// one owner, an elevated capability may act on behalf of any owner.
type Capability struct {
	ownerID  string
	elevated bool
}

func Standard(ownerID string) Capability {
	return Capability{ownerID: ownerID}
}

func Elevated() Capability {
	return Capability{elevated: true}
}

func (c Capability) IsElevated() bool {
	return c.elevated
}

// OwnerID returns the owner a standard capability is pinned to. Empty for an
// elevated capability; callers resolve the acting owner via ActingOwner.
func (c Capability) OwnerID() string {
	return c.ownerID
}

// ActingOwner resolves which owner's data the request operates on. requested
// is the client_id the caller asked for, empty to act as oneself.
func (c Capability) ActingOwner(requested string) (string, error) {
	if requested == "" || requested == c.ownerID {
		return c.ownerID, nil
	}
	if c.elevated {
		return requested, nil
	}
	return "", ErrForbidden
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleClient, RoleAdmin:
		return Role(role)
	default:
		return RoleClient
	}
}

// Authorize maps an authenticated principal to its capability.
func Authorize(role string, userID string) Capability {
	if Normalize(role) == RoleAdmin {
		return Elevated()
	}
	return Standard(userID)
}
