package rbac

// Role names. Keep these stable; they are part of auth contracts.
const (
	// RoleManager is the back-office role: operator/index administration,
	// number and credit sales, cashier state.
	RoleManager = "manager"
	// RoleSubscriber is the customer role: credit lookup, calls, history.
	RoleSubscriber = "subscriber"
)

func IsKnownRole(role string) bool {
	return role == RoleManager || role == RoleSubscriber
}
