package middleware

import (
	"crypto/subtle"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// RequireAPIKey validates the shared-secret "key" query parameter before
// any state is touched. The gateway is configured with the same secret
// on its webhook URL.
func RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := os.Getenv("SERVER_API_KEY")
		if secret == "" {
			// Log error but don't expose details to the client
			log.Println("ERROR: SERVER_API_KEY not set")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		key := c.Query("key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
			log.Println("⛔ Unauthorized request rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		return c.Next()
	}
}
