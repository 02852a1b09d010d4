package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teamgrid/teamgrid/internal/web/handler/login"
	"github.com/teamgrid/teamgrid/internal/web/session"
)

// publicPrefixes are reachable without a session.
var publicPrefixes = []string{
	login.Path,
	"/checkalive",
	"/metrics",
}

// Middleware is a Fiber middleware that checks for user authentication.
// Unauthenticated requests to protected paths get a 401; the authenticated
// user is stored in locals as "CurrentUser" for downstream handlers.
func Middleware(c *fiber.Ctx) error {
	originalURL := strings.ToLower(c.OriginalURL())
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(originalURL, prefix) {
			return c.Next()
		}
	}

	loginCookie := c.Cookies("session")
	if loginCookie == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	sessData := new(session.Data)
	if err := sessData.Read(loginCookie); err != nil || sessData.User.ID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	c.Locals("CurrentUser", sessData.User)

	return c.Next()
}
