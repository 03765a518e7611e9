package auth

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/domain"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

var pagePaths = []string{
	"/", "/products", "/auth/login", "/auth/register", "/unauthorized",
	"/dashboard/admin", "/dashboard/seller", "/dashboard/customer", "/profile", "/orders",
}

func newGateApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := newTestTokenManager(t)
	gate := NewGate(tm, SessionCookie{TTL: tm.TTL()}, nil)

	app := fiber.New()
	app.Use(gate.Handle)
	for _, p := range pagePaths {
		app.Get(p, func(c *fiber.Ctx) error {
			claims, _ := ClaimsFromContext(c)
			role := ""
			if claims != nil {
				role = string(claims.Role)
			}
			return c.JSON(fiber.Map{"page": c.Path(), "role": role})
		})
	}
	return app, tm
}

func pageRequest(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	}
	return req
}

func TestGateAllowsPublicRoutesWithoutCookie(t *testing.T) {
	app, _ := newGateApp(t)

	for _, p := range []string{"/", "/products", "/auth/login", "/auth/register"} {
		resp, err := app.Test(pageRequest(p, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

func TestGateRedirectsAnonymousToLogin(t *testing.T) {
	app, _ := newGateApp(t)

	resp, err := app.Test(pageRequest("/dashboard/customer", ""))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, LoginPath, resp.Header.Get("Location"))
}

func TestGateClearsInvalidCookie(t *testing.T) {
	app, tm := newGateApp(t)
	tm.now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
	expired, _, err := tm.Issue(Claims{UserID: "u-1", Email: "a@x.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	tm.now = time.Now

	for _, token := range []string{"garbage", expired} {
		resp, err := app.Test(pageRequest("/profile", token))
		require.NoError(t, err)

		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Equal(t, LoginPath, resp.Header.Get("Location"))

		var cleared *http.Cookie
		for _, ck := range resp.Cookies() {
			if ck.Name == DefaultCookieName {
				cleared = ck
			}
		}
		require.NotNil(t, cleared, "cookie should be cleared")
		assert.Empty(t, cleared.Value)
		assert.True(t, cleared.Expires.Before(time.Now()))
	}
}

func TestGateEnforcesRoleTable(t *testing.T) {
	app, tm := newGateApp(t)

	for _, rule := range RouteTable() {
		for _, role := range domain.AllRoles {
			token, _, err := tm.Issue(Claims{UserID: "u-" + string(role), Email: "x@x.com", Role: role})
			require.NoError(t, err)

			resp, err := app.Test(pageRequest(rule.Prefix, token))
			require.NoError(t, err)

			if slices.Contains(rule.Roles, role) {
				assert.Equal(t, http.StatusOK, resp.StatusCode, "%s as %s", rule.Prefix, role)
			} else {
				assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode, "%s as %s", rule.Prefix, role)
				assert.Equal(t, UnauthorizedPath, resp.Header.Get("Location"))
			}
		}
	}
}

func TestGateAllowsAuthenticatedOnUnlistedRoutes(t *testing.T) {
	app, tm := newGateApp(t)
	token, _, err := tm.Issue(Claims{UserID: "u-1", Email: "a@x.com", Role: domain.RoleCustomer})
	require.NoError(t, err)

	resp, err := app.Test(pageRequest("/orders", token))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareRequiresBearer(t *testing.T) {
	tm := newTestTokenManager(t)
	mw := NewAuthMiddleware(tm)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": de.Message})
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(claims.Email)
	})

	token, _, err := tm.Issue(Claims{UserID: "u-1", Email: "a@x.com", Role: domain.RoleSeller})
	require.NoError(t, err)

	cases := map[string]int{
		"":                     http.StatusUnauthorized,
		"Basic abc":            http.StatusUnauthorized,
		"Bearer ":              http.StatusUnauthorized,
		"Bearer not-a-token":   http.StatusUnauthorized,
		"Bearer " + token:      http.StatusOK,
		"bearer " + token:      http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, header)
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	_, ok = BearerToken("Token abc")
	assert.False(t, ok)
}
