// Package httpkit shapes domain errors into the fiber JSON envelope,
// adapted from the teacher's common/net/http/errors.go WithError type
// switch, and carries the CORS/correlation-id/health middleware the teacher
// wires onto every HTTP surface.
package httpkit

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/barazo-forum/barazo-api/internal/domain"
)

// Envelope is the {error, message, statusCode, details} shape used for
// every HTTP error response.
type Envelope struct {
	Error      string         `json:"error"`
	Message    string         `json:"message,omitempty"`
	StatusCode int            `json:"statusCode,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

func respond(c *fiber.Ctx, status int, label, message string) error {
	return c.Status(status).JSON(Envelope{Error: label, Message: message, StatusCode: status})
}

// WriteError maps a typed domain error to its HTTP status and envelope.
func WriteError(c *fiber.Ctx, err error) error {
	var (
		notFound     domain.NotFoundError
		validation   domain.ValidationError
		conflict     domain.ConflictError
		unauthorized domain.UnauthorizedError
		forbidden    domain.ForbiddenError
		unavailable  domain.UnavailableError
	)

	switch {
	case errors.As(err, &notFound):
		return respond(c, fiber.StatusNotFound, "not_found", notFound.Error())
	case errors.As(err, &validation):
		return respond(c, fiber.StatusBadRequest, "validation_error", validation.Error())
	case errors.As(err, &conflict):
		return respond(c, fiber.StatusConflict, "conflict", conflict.Error())
	case errors.As(err, &unauthorized):
		return respond(c, fiber.StatusUnauthorized, "unauthorized", unauthorized.Error())
	case errors.As(err, &forbidden):
		return respond(c, fiber.StatusForbidden, "forbidden", forbidden.Error())
	case errors.As(err, &unavailable):
		return respond(c, fiber.StatusBadGateway, "service_unavailable", unavailable.Error())
	default:
		return respond(c, fiber.StatusInternalServerError, "internal_error", "The server encountered an unexpected error.")
	}
}
