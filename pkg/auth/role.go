package auth

import "strings"

// Role represents a user's privilege level in the registry.
type Role string

const (
	// RoleAnonymous is the zero role for unauthenticated callers.
	RoleAnonymous Role = ""

	// RoleUser is the default role for registered users. Users can browse the
	// catalog, submit contribution requests, and toggle recommendations.
	RoleUser Role = "USER"

	// RoleAdmin can mutate catalog records directly and resolve pending
	// contribution requests.
	RoleAdmin Role = "ADMIN"

	// RoleOwner can do everything an admin can, plus manage user roles.
	RoleOwner Role = "OWNER"
)

// legacyRoleContributor existed in an earlier schema revision. It carries no
// capability beyond USER and is normalized away on parse and by
// UserStore.MigrateLegacyRoles.
const legacyRoleContributor = "CONTRIBUTOR"

// ParseRole normalizes a stored or transmitted role string into a Role.
// Unknown values and the legacy CONTRIBUTOR level map to RoleUser; an empty
// string stays anonymous.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleOwner):
		return RoleOwner
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleUser), legacyRoleContributor:
		return RoleUser
	case "":
		return RoleAnonymous
	default:
		return RoleUser
	}
}

// Authenticated reports whether the role belongs to a signed-in user.
func (r Role) Authenticated() bool {
	return r != RoleAnonymous
}

// AtLeast reports whether the role meets the required privilege level.
// Ordering: USER < ADMIN < OWNER.
func (r Role) AtLeast(required Role) bool {
	return rank(r) >= rank(required)
}

func rank(r Role) int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// Assignable reports whether the role is a valid target for role assignment.
// OWNER is never assignable through the API; it is held by the bootstrap user
// or granted by the store's bootstrap path only.
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleAdmin
}
