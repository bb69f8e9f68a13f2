package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin     = "admin"
	RoleDesigner  = "designer"
	RoleDeveloper = "developer"
)

// DefaultRole is assigned when registration omits a role.
const DefaultRole = RoleDeveloper

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDesigner, RoleDeveloper:
		return true
	default:
		return false
	}
}

// AllRoles lists every known role. Gating an endpoint on AllRoles means "any
// authenticated principal".
func AllRoles() []string {
	return []string{RoleAdmin, RoleDesigner, RoleDeveloper}
}
