package models

// Roles recognized by the authorization layer. Only RoleUser is issuable at
// self-registration; RoleAdmin requires an existing admin's authorization,
// and RoleManager is granted out of band but honored by role allow-lists.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// KnownRole reports whether the role string is one the guard understands.
func KnownRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}
