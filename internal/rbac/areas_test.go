package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaFor_MostSpecificWins(t *testing.T) {
	a, ok := AreaFor("/admin-evolutech/operacional/")
	assert.True(t, ok)
	assert.Equal(t, "operational", a.Name)

	a, ok = AreaFor("/empresa/app/modules/orders")
	assert.True(t, ok)
	assert.Equal(t, "company_app", a.Name)

	_, ok = AreaFor("/empresa/application")
	assert.False(t, ok)

	_, ok = AreaFor("/portal")
	assert.False(t, ok)
}

func TestAreas_LandingPathsAreReachable(t *testing.T) {
	for _, role := range Roles {
		landing := LandingPath(role)
		a, ok := AreaFor(landing)
		if assert.True(t, ok, "landing %s has no area", landing) {
			s := Subject{Authenticated: true, Role: role, TenantID: "t1"}
			assert.Equal(t, AccessAllow, DecideAccess(s, a.Policy, landing).Outcome, "role %s", role)
		}
	}
}
