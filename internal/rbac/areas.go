package rbac

import "strings"

// Area is a guarded dashboard subtree.
type Area struct {
	Name   string
	Path   string
	Policy Policy
}

var (
	AreaAdmin = Area{Name: "admin", Path: "/admin-evolutech",
		Policy: Policy{Roles: []Role{RoleSuperAdmin}}}
	AreaOperational = Area{Name: "operational", Path: "/admin-evolutech/operacional",
		Policy: Policy{Roles: []Role{RoleSuperAdmin, RoleAdmin}}}
	AreaCompanyDashboard = Area{Name: "company_dashboard", Path: "/empresa/dashboard",
		Policy: Policy{Roles: []Role{RoleOwner}, RequireTenant: true}}
	AreaCompanyApp = Area{Name: "company_app", Path: "/empresa/app",
		Policy: Policy{Roles: []Role{RoleOwner, RoleEmployee}, RequireTenant: true}}
	// Support stays reachable without a tenant so an unlinked user can ask for access.
	AreaSupport = Area{Name: "support", Path: PathSupport,
		Policy: Policy{Roles: []Role{RoleOwner, RoleEmployee}}}
)

var Areas = []Area{AreaAdmin, AreaOperational, AreaCompanyDashboard, AreaCompanyApp, AreaSupport}

// AreaFor returns the most specific area containing path.
func AreaFor(path string) (Area, bool) {
	path = strings.TrimSuffix(path, "/")
	var best Area
	found := false
	for _, a := range Areas {
		if path != a.Path && !strings.HasPrefix(path, a.Path+"/") {
			continue
		}
		if !found || len(a.Path) > len(best.Path) {
			best, found = a, true
		}
	}
	return best, found
}
