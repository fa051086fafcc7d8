package auth

// Operation classifies what a caller is attempting to do. Every mutating
// entry point maps its request to exactly one Operation and asks the Gate;
// handlers never duplicate role checks ad hoc.
type Operation string

const (
	// OpReadCatalog covers all read-only catalog access.
	OpReadCatalog Operation = "catalog.read"

	// OpMutateRecord covers direct changes to a catalog record or its images:
	// field updates, attaching/replacing images, changing the primary image,
	// deleting images, and creating records.
	OpMutateRecord Operation = "record.mutate"

	// OpSubmitRequest covers creating an edit request, an image replacement
	// request, or a free-standing image submission. These queue a proposal
	// and are not themselves catalog mutations.
	OpSubmitRequest Operation = "request.submit"

	// OpResolveRequest covers approving or rejecting any pending request.
	OpResolveRequest Operation = "request.resolve"

	// OpToggleRecommendation covers the like/unlike toggle.
	OpToggleRecommendation Operation = "recommendation.toggle"

	// OpReadUsers covers the user-management listing surface.
	OpReadUsers Operation = "users.read"

	// OpAssignRole covers granting USER or ADMIN to a non-owner target.
	OpAssignRole Operation = "role.assign"

	// OpTouchOwner covers every forbidden role mutation: assigning or
	// removing OWNER, changing an existing owner's role, deleting an owner
	// account, or a user changing their own role.
	OpTouchOwner Operation = "role.touch_owner"
)

// Decision is the Gate's verdict for a (role, operation) pair.
type Decision int

const (
	// Deny short-circuits the operation with a Forbidden error.
	Deny Decision = iota

	// Direct applies the mutation immediately.
	Direct

	// Queue stores the change as a pending request for later review.
	Queue
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case Direct:
		return "direct"
	case Queue:
		return "queue"
	default:
		return "deny"
	}
}

// Decide maps a (role, operation) pair to a Decision. It is a pure function
// with no side effects; the same table backs every entry point.
func Decide(role Role, op Operation) Decision {
	switch op {
	case OpReadCatalog:
		return Direct

	case OpMutateRecord:
		if role.AtLeast(RoleAdmin) {
			return Direct
		}
		if role.Authenticated() {
			return Queue
		}
		return Deny

	case OpSubmitRequest, OpToggleRecommendation:
		if role.Authenticated() {
			return Direct
		}
		return Deny

	case OpResolveRequest, OpReadUsers:
		if role.AtLeast(RoleAdmin) {
			return Direct
		}
		return Deny

	case OpAssignRole:
		if role == RoleOwner {
			return Direct
		}
		return Deny

	case OpTouchOwner:
		return Deny

	default:
		return Deny
	}
}

// RoleOperation selects the Operation for a role-management attempt.
// Any attempt that touches an OWNER account, grants OWNER, or targets the
// actor themselves falls into the always-denied OpTouchOwner bucket; the
// remaining cases are plain role assignment gated on the actor being OWNER.
func RoleOperation(actorID, targetID string, targetCurrent, requested Role) Operation {
	if actorID == targetID {
		return OpTouchOwner
	}
	if targetCurrent == RoleOwner || requested == RoleOwner {
		return OpTouchOwner
	}
	if !requested.Assignable() {
		return OpTouchOwner
	}
	return OpAssignRole
}
