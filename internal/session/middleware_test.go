package session_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/session"
)

type fakeRoles struct {
	roles map[string]domain.Role
	err   error
}

func (f *fakeRoles) Role(ctx context.Context, repoID string) (domain.Role, error) {
	if f.err != nil {
		return "", f.err
	}

	return f.roles[repoID], nil
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	auth, _, _, _ := newAuthority()
	app := fiber.New()
	app.Get("/protected", session.RequireAuth(auth), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	auth, _, _, _ := newAuthority()
	app := fiber.New()
	app.Get("/protected", session.RequireAuth(auth), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer does-not-exist")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	auth, _, _, _ := newAuthority()
	ctx := t.Context()
	_, token, err := auth.CreateSession(ctx, "did:plc:alice", "alice.example", nil)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/protected", session.RequireAuth(auth), func(c *fiber.Ctx) error {
		sess, ok := session.FromContext(c)
		require.True(t, ok)
		assert.Equal(t, "did:plc:alice", sess.RepoID)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuthReturnsBadGatewayOnTransportError(t *testing.T) {
	state, sessions, tokens := newFakeKV(), newFakeKV(), newFakeKV()
	auth := session.New(state, sessions, tokens, session.Config{}, nil)
	tokens.getErr = errors.New("redis down")

	app := fiber.New()
	app.Get("/protected", session.RequireAuth(auth), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer whatever")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestOptionalAuthPassesThroughOnMissingToken(t *testing.T) {
	auth, _, _, _ := newAuthority()
	app := fiber.New()
	app.Get("/open", session.OptionalAuth(auth), func(c *fiber.Ctx) error {
		_, ok := session.FromContext(c)
		assert.False(t, ok)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestOptionalAuthPassesThroughOnTransportError(t *testing.T) {
	state, sessions, tokens := newFakeKV(), newFakeKV(), newFakeKV()
	auth := session.New(state, sessions, tokens, session.Config{}, nil)
	tokens.getErr = errors.New("redis down")

	app := fiber.New()
	app.Get("/open", session.OptionalAuth(auth), func(c *fiber.Ctx) error {
		_, ok := session.FromContext(c)
		assert.False(t, ok)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/open", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer whatever")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireModeratorRejectsInsufficientRole(t *testing.T) {
	auth, _, _, _ := newAuthority()
	roles := &fakeRoles{roles: map[string]domain.Role{"did:plc:alice": "member"}}
	_, token, err := auth.CreateSession(t.Context(), "did:plc:alice", "alice.example", nil)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/mod", session.RequireModerator(auth, roles), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/mod", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireModeratorAcceptsModeratorAndAdmin(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleModerator, domain.RoleAdmin} {
		auth, _, _, _ := newAuthority()
		roles := &fakeRoles{roles: map[string]domain.Role{"did:plc:alice": role}}
		_, token, err := auth.CreateSession(t.Context(), "did:plc:alice", "alice.example", nil)
		require.NoError(t, err)

		app := fiber.New()
		app.Get("/mod", session.RequireModerator(auth, roles), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		req := httptest.NewRequest("GET", "/mod", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestRequireAdminRejectsModerator(t *testing.T) {
	auth, _, _, _ := newAuthority()
	roles := &fakeRoles{roles: map[string]domain.Role{"did:plc:alice": domain.RoleModerator}}
	_, token, err := auth.CreateSession(t.Context(), "did:plc:alice", "alice.example", nil)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/admin", session.RequireAdmin(auth, roles), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireOperatorRejectsNonOperator(t *testing.T) {
	auth, _, _, _ := newAuthority()
	_, token, err := auth.CreateSession(t.Context(), "did:plc:alice", "alice.example", nil)
	require.NoError(t, err)

	isOperator := func(repoID string) bool { return repoID == "did:plc:ops" }

	app := fiber.New()
	app.Get("/ops", session.RequireOperator(auth, isOperator), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/ops", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireOperatorAcceptsConfiguredOperator(t *testing.T) {
	auth, _, _, _ := newAuthority()
	_, token, err := auth.CreateSession(t.Context(), "did:plc:ops", "ops.example", nil)
	require.NoError(t, err)

	isOperator := func(repoID string) bool { return repoID == "did:plc:ops" }

	app := fiber.New()
	app.Get("/ops", session.RequireOperator(auth, isOperator), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/ops", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
