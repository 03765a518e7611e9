package auth

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/storefront/internal/domain"
)

func TestIsPublic(t *testing.T) {
	public := []string{"/", "/auth/login", "/auth/register", "/products", "/products/42", "/unauthorized"}
	private := []string{"/dashboard/admin", "/dashboard/customer", "/profile", "/orders", "/auth/loginx", "/productsale"}

	for _, p := range public {
		assert.True(t, IsPublic(p), p)
	}
	for _, p := range private {
		assert.False(t, IsPublic(p), p)
	}
}

func TestRootIsNotAPrefixMatch(t *testing.T) {
	assert.False(t, IsPublic("/dashboard/admin"))
	assert.False(t, IsAllowed(domain.RoleCustomer, "/dashboard/admin"))
}

func TestIsAllowedCoversEveryRouteRolePair(t *testing.T) {
	allowed := map[string][]domain.Role{
		"/dashboard/admin":    {domain.RoleAdmin},
		"/dashboard/seller":   {domain.RoleSeller, domain.RoleAdmin},
		"/dashboard/customer": {domain.RoleCustomer, domain.RoleSeller, domain.RoleAdmin},
		"/profile":            {domain.RoleCustomer, domain.RoleSeller, domain.RoleAdmin},
	}

	for path, roles := range allowed {
		for _, role := range domain.AllRoles {
			want := slices.Contains(roles, role)
			assert.Equal(t, want, IsAllowed(role, path), "%s as %s", path, role)
			assert.Equal(t, want, IsAllowed(role, path+"/settings"), "%s/settings as %s", path, role)
		}
	}
}

func TestIsAllowedUnknownRole(t *testing.T) {
	assert.False(t, IsAllowed(domain.Role("SUPERUSER"), "/profile"))
	assert.False(t, IsAllowed(domain.Role(""), "/orders"))
	assert.True(t, IsAllowed(domain.Role(""), "/products"))
}

func TestMatchRouteUsesSegmentBoundaries(t *testing.T) {
	_, ok := MatchRoute("/profiles")
	assert.False(t, ok)

	rule, ok := MatchRoute("/dashboard/seller/orders")
	assert.True(t, ok)
	assert.Equal(t, "/dashboard/seller", rule.Prefix)
}

func TestRouteTableIsOrderedAndCopied(t *testing.T) {
	table := RouteTable()
	assert.Equal(t, "/dashboard/admin", table[0].Prefix)
	assert.Equal(t, "/profile", table[len(table)-1].Prefix)

	table[0].Prefix = "/mutated"
	assert.Equal(t, "/dashboard/admin", RouteTable()[0].Prefix)
}
