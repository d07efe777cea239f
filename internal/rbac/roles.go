package rbac

import "strings"

// Role is an operator identity class. The set is closed and shared with the backend;
// do not add or rename values without a coordinated API release.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN_EVOLUTECH"
	RoleAdmin      Role = "ADMIN_EVOLUTECH"
	RoleOwner      Role = "DONO_EMPRESA"
	RoleEmployee   Role = "FUNCIONARIO_EMPRESA"
)

// Roles lists every known role.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleOwner, RoleEmployee}

// Canonical paths.
const (
	PathRoot    = "/"
	PathLogin   = "/login"
	PathSupport = "/empresa/suporte"
)

var landingPaths = map[Role]string{
	RoleSuperAdmin: "/admin-evolutech",
	RoleAdmin:      "/admin-evolutech/operacional",
	RoleOwner:      "/empresa/dashboard",
	RoleEmployee:   "/empresa/app",
}

// LandingPath returns the dashboard a role lands on after login.
// Unknown or empty roles fall back to the login page.
func LandingPath(role Role) string {
	if p, ok := landingPaths[role]; ok {
		return p
	}
	return PathLogin
}

func (r Role) Valid() bool {
	_, ok := landingPaths[r]
	return ok
}

func (r Role) String() string { return string(r) }

// ParseRole accepts the wire spelling, tolerating surrounding spaces and lower case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

func IsEvolutechStaff(r Role) bool { return r == RoleSuperAdmin || r == RoleAdmin }

func IsCompanyRole(r Role) bool { return r == RoleOwner || r == RoleEmployee }

// Contains reports whether role is a member of set. Roles carry no hierarchy.
func Contains(set []Role, role Role) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
