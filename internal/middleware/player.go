package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// EnsurePlayerID resolves the caller's player ID from the X-Player-ID header
// or the playerId query parameter. Browsers cannot set headers on a websocket
// handshake, so the query form is what /ws routes use.
func EnsurePlayerID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Check if playerID is already set
		if c.Locals("playerID") != nil {
			return c.Next()
		}

		playerID := c.Get("X-Player-ID")
		if playerID == "" {
			playerID = c.Query("playerId")
		}

		if playerID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Player ID is required. Please ensure client is properly initialized.",
			})
		}

		// Store in context for this request
		c.Locals("playerID", playerID)
		return c.Next()
	}
}
