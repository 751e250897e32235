package httpkit

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

const headerCorrelationID = "X-Correlation-Id"

func getenvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// WithCORS mirrors the teacher's common/net/http/withCORS.go.
func WithCORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     getenvOrDefault("ACCESS_CONTROL_ALLOW_ORIGIN", "*"),
		AllowMethods:     getenvOrDefault("ACCESS_CONTROL_ALLOW_METHODS", "POST, GET, OPTIONS, PUT, DELETE, PATCH"),
		AllowHeaders:     getenvOrDefault("ACCESS_CONTROL_ALLOW_HEADERS", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization"),
		AllowCredentials: true,
	})
}

// WithCorrelationID mirrors the teacher's withCorrelationID.go.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := uuid.New().String()
		c.Set(headerCorrelationID, cid)
		c.Request().Header.Add(headerCorrelationID, cid)

		return c.Next()
	}
}

// Ping mirrors the teacher's health handler.
func Ping(c *fiber.Ctx) error {
	return c.SendString("healthy")
}

// Version mirrors the teacher's version handler.
func Version(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     version,
			"requestDate": time.Now().UTC(),
		})
	}
}
