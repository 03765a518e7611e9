package auth

import (
	"slices"
	"strings"

	"github.com/spec-kit/storefront/internal/domain"
)

const (
	// LoginPath is where the gate sends callers without a valid session.
	LoginPath = "/auth/login"
	// RegisterPath is the public sign-up page.
	RegisterPath = "/auth/register"
	// UnauthorizedPath is where the gate sends callers whose role is not allowed.
	UnauthorizedPath = "/unauthorized"
)

// RouteRule restricts a path prefix to a set of roles.
type RouteRule struct {
	Prefix string
	Roles  []domain.Role
}

// publicPrefixes never require a session. "/" is handled as an exact match.
var publicPrefixes = []string{LoginPath, RegisterPath, "/products", UnauthorizedPath}

// routeTable is consulted in order; the first matching prefix wins.
var routeTable = []RouteRule{
	{Prefix: "/dashboard/admin", Roles: []domain.Role{domain.RoleAdmin}},
	{Prefix: "/dashboard/seller", Roles: []domain.Role{domain.RoleSeller, domain.RoleAdmin}},
	{Prefix: "/dashboard/customer", Roles: domain.AllRoles},
	{Prefix: "/profile", Roles: domain.AllRoles},
}

// RouteTable returns a copy of the ordered role table.
func RouteTable() []RouteRule {
	out := make([]RouteRule, len(routeTable))
	copy(out, routeTable)
	return out
}

// IsPublic reports whether path may be served without a session.
func IsPublic(path string) bool {
	if path == "/" || path == "" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// MatchRoute returns the first rule whose prefix covers path.
func MatchRoute(path string) (RouteRule, bool) {
	for _, rule := range routeTable {
		if hasPathPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// IsAllowed decides whether an authenticated caller with role may open path.
func IsAllowed(role domain.Role, path string) bool {
	if IsPublic(path) {
		return true
	}
	if !role.Valid() {
		return false
	}
	rule, ok := MatchRoute(path)
	if !ok {
		return true
	}
	return slices.Contains(rule.Roles, role)
}

// hasPathPrefix matches whole segments so "/profile" does not cover "/profiles".
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
