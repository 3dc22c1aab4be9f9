package rbac

// Role names. Keep these stable; they are part of auth contracts.
//
// Viewers see only calls for assistants mapped to their email; admins see
// everything and manage the mappings.
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
