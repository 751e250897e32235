package session

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/httpkit"
)

const localsSessionKey = "barazo.session"

// UserRoleLookup loads a user's current role for the admin/moderator gates.
type UserRoleLookup interface {
	Role(ctx context.Context, repoID string) (domain.Role, error)
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "

	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := strings.TrimPrefix(header, prefix)

	return token, token != ""
}

// RequireAuth extracts the bearer token, rejecting 401 on absence/malformed/
// invalid and 502 on a KV transport error; on success it attaches the
// Session to the request context.
func RequireAuth(authority *Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return httpkit.WriteError(c, domain.UnauthorizedError{Reason: "missing or malformed bearer token"})
		}

		sess, err := authority.ValidateAccessToken(c.UserContext(), token)
		if err != nil {
			return httpkit.WriteError(c, domain.UnavailableError{Service: "session-store", Err: err})
		}

		if sess == nil {
			return httpkit.WriteError(c, domain.UnauthorizedError{Reason: "invalid or expired access token"})
		}

		c.Locals(localsSessionKey, sess)

		return c.Next()
	}
}

// OptionalAuth behaves like RequireAuth on success, but leaves the request
// unauthenticated (rather than rejecting) on miss, malformed header, or
// transport error.
func OptionalAuth(authority *Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}

		sess, err := authority.ValidateAccessToken(c.UserContext(), token)
		if err != nil || sess == nil {
			return c.Next()
		}

		c.Locals(localsSessionKey, sess)

		return c.Next()
	}
}

// FromContext retrieves the Session attached by RequireAuth/OptionalAuth,
// if any.
func FromContext(c *fiber.Ctx) (*Session, bool) {
	sess, ok := c.Locals(localsSessionKey).(*Session)
	return sess, ok
}

// RequireModerator calls RequireAuth, then accepts only moderator or admin
// roles.
func RequireModerator(authority *Authority, roles UserRoleLookup) fiber.Handler {
	return requireRole(authority, roles, domain.RoleModerator, domain.RoleAdmin)
}

// RequireAdmin calls RequireAuth, then accepts only the admin role.
func RequireAdmin(authority *Authority, roles UserRoleLookup) fiber.Handler {
	return requireRole(authority, roles, domain.RoleAdmin)
}

func requireRole(authority *Authority, roles UserRoleLookup, accepted ...domain.Role) fiber.Handler {
	auth := RequireAuth(authority)

	return func(c *fiber.Ctx) error {
		if err := auth(c); err != nil {
			return err
		}

		sess, _ := FromContext(c)

		role, err := roles.Role(c.UserContext(), sess.RepoID)
		if err != nil {
			return httpkit.WriteError(c, domain.UnavailableError{Service: "user-store", Err: err})
		}

		for _, allowed := range accepted {
			if role == allowed {
				return c.Next()
			}
		}

		return httpkit.WriteError(c, domain.ForbiddenError{Reason: "insufficient role"})
	}
}

// RequireOperator exists only when the process runs in "global" mode;
// callers should not even register the route otherwise — the route is
// hidden entirely, not merely rejecting. When registered, it checks the
// caller's repo-id against the configured operator set.
func RequireOperator(authority *Authority, isOperator func(repoID string) bool) fiber.Handler {
	auth := RequireAuth(authority)

	return func(c *fiber.Ctx) error {
		if err := auth(c); err != nil {
			return err
		}

		sess, _ := FromContext(c)

		if !isOperator(sess.RepoID) {
			return httpkit.WriteError(c, domain.ForbiddenError{Reason: "caller is not a configured operator"})
		}

		return c.Next()
	}
}
