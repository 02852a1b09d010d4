package rbac

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/teamgrid/teamgrid/internal/web/session"
)

// accessDeniedMsg is the generic denial body. It deliberately does not name
// the missing permission.
const accessDeniedMsg = "access denied"

// RequirePermission creates Fiber middleware that requires a specific permission.
// Resolver errors fail closed: the request is rejected, never waved through.
func RequirePermission(svc *Service, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := sessionUserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		hasPermission, err := svc.HasPermission(userID, permission)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Str("permission", permission).
				Msg("failed to check permission")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": accessDeniedMsg})
		}

		if !hasPermission {
			log.Warn().Uint64("user_id", userID).Str("permission", permission).
				Msg("user lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": accessDeniedMsg})
		}

		return c.Next()
	}
}

// RequireAnyPermission creates Fiber middleware that requires at least one of
// the given permissions.
func RequireAnyPermission(svc *Service, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := sessionUserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		hasPermission, err := svc.HasAnyPermission(userID, permissions)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Strs("permissions", permissions).
				Msg("failed to check permissions")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": accessDeniedMsg})
		}

		if !hasPermission {
			log.Warn().Uint64("user_id", userID).Strs("permissions", permissions).
				Msg("user lacks required permissions")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": accessDeniedMsg})
		}

		return c.Next()
	}
}

// RequireTeamPermission creates Fiber middleware that requires a permission
// within the team identified by the given route parameter.
func RequireTeamPermission(svc *Service, teamParam, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := sessionUserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		teamID, err := strconv.ParseUint(c.Params(teamParam), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team id"})
		}

		hasPermission, err := svc.HasTeamPermission(userID, teamID, permission)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Uint64("team_id", teamID).
				Str("permission", permission).Msg("failed to check team permission")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": accessDeniedMsg})
		}

		if !hasPermission {
			log.Warn().Uint64("user_id", userID).Uint64("team_id", teamID).
				Str("permission", permission).Msg("user lacks required team permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": accessDeniedMsg})
		}

		return c.Next()
	}
}

// sessionUserID extracts the authenticated user's ID from the session cookie.
func sessionUserID(c *fiber.Ctx) (uint64, bool) {
	sessionID := c.Cookies("session")
	if sessionID == "" {
		return 0, false
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		return 0, false
	}

	if sessionData.User.ID == 0 {
		return 0, false
	}

	return sessionData.User.ID, true
}
