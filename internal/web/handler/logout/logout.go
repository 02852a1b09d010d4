// Package logout implements the session teardown endpoint.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/web/handler"
	"github.com/teamgrid/teamgrid/internal/web/session"
)

// Service is the logout handler service.
type Service struct {
	cfg      *config.Config
	recorder *audit.Recorder
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, recorder *audit.Recorder) {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.recorder = recorder

	app.Post(handler.RootPath+"logout", s.Logout)
}

// Logout handles user logout by clearing the session.
func (s *Service) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies("session")
	if sessionID != "" {
		if err := session.Store.Storage.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	// Clear the session cookie
	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	if user, ok := c.Locals("CurrentUser").(models.User); ok && user.ID > 0 {
		id := user.ID

		s.recorder.Record(audit.Event{
			UserID:    &id,
			Action:    models.ActionLogout,
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Status:    models.AuditStatusSuccess,
		})
	}

	return c.JSON(fiber.Map{"status": "logged out"})
}
