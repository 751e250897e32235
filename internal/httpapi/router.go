// Package httpapi assembles the fiber routes this service exposes: health/
// version per the teacher's common/net/http handlers, and the OAuth
// redirect/callback/logout surface fronting session.Flow and
// session.Authority. The forum content API itself is an external
// collaborator; only the auth surface lives here.
package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/platform/httpkit"
	"github.com/barazo-forum/barazo-api/internal/session"
)

// Dependencies bundles everything the router needs to register routes.
type Dependencies struct {
	Authority    *session.Authority
	Flow         *session.Flow
	Roles        session.UserRoleLookup
	IsOperator   func(repoID string) bool
	GlobalMode   bool
	Version      string
	Logger       ctxlog.Logger
}

// New builds a fiber.App with every route this service exposes registered.
func New(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(httpkit.WithCORS())
	app.Use(httpkit.WithCorrelationID())

	app.Get("/healthz", httpkit.Ping)
	app.Get("/version", httpkit.Version(deps.Version))

	auth := app.Group("/auth")
	auth.Get("/login", beginLogin(deps.Flow))
	auth.Get("/callback", completeCallback(deps.Flow))
	auth.Post("/logout", session.RequireAuth(deps.Authority), logout(deps.Authority))
	auth.Get("/session", session.RequireAuth(deps.Authority), currentSession)

	if deps.GlobalMode {
		app.Get("/operator/ping", session.RequireOperator(deps.Authority, deps.IsOperator), operatorPing)
	}

	return app
}

func beginLogin(flow *session.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redirectURL, err := flow.BeginRedirect(c.UserContext())
		if err != nil {
			return httpkit.WriteError(c, domain.UnavailableError{Service: "session-store", Err: err})
		}

		return c.Redirect(redirectURL, fiber.StatusFound)
	}
}

func completeCallback(flow *session.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Query("code")
		state := c.Query("state")

		sess, accessToken, ok, err := flow.CompleteCallback(c.UserContext(), code, state)
		if err != nil {
			return httpkit.WriteError(c, domain.UnavailableError{Service: "identity-provider", Err: err})
		}

		if !ok {
			return httpkit.WriteError(c, domain.UnauthorizedError{Reason: "oauth state missing or expired"})
		}

		return c.JSON(fiber.Map{
			"accessToken": accessToken,
			"repoId":      sess.RepoID,
			"handle":      sess.Handle,
		})
	}
}

func logout(authority *session.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := session.FromContext(c)
		if !ok {
			return httpkit.WriteError(c, domain.UnauthorizedError{Reason: "no active session"})
		}

		if err := authority.Revoke(c.UserContext(), sess.RepoID); err != nil {
			return httpkit.WriteError(c, domain.UnavailableError{Service: "session-store", Err: err})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

func currentSession(c *fiber.Ctx) error {
	sess, _ := session.FromContext(c)

	return c.JSON(fiber.Map{
		"repoId": sess.RepoID,
		"handle": sess.Handle,
		"scopes": sess.Scopes,
	})
}

func operatorPing(c *fiber.Ctx) error {
	return c.SendString("pong")
}
