package middleware

import (
	"log"
	"strings"

	"tokoadmin/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a Fiber middleware gating protected routes on a valid
// bearer token. The token must also resolve to a live user, so tokens of
// deleted accounts are rejected.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		user, err := authService.Authenticate(parts[1])
		if err != nil {
			log.Printf("Token authentication failed: %v", err)
			return unauthorized(c, "Invalid or expired token")
		}

		// Store the resolved user in Fiber context for subsequent handlers
		c.Locals("user", user)
		c.Locals("user_id", user.ID)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
