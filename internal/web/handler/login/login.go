// Package login implements the credential login endpoint. Attempts are
// throttled per origin address and every attempt, successful or not, is
// recorded in the audit trail.
package login

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/ratelimit"
	"github.com/teamgrid/teamgrid/internal/web/handler"
	"github.com/teamgrid/teamgrid/internal/web/session"
)

const (
	// Path is the path of the login endpoint.
	Path = "/login"

	// DefaultRateLimit and DefaultRateWindow throttle login attempts per
	// origin address when the configuration does not set its own values.
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute

	invalidCredentialsMsg = "invalid username or password"
)

// request is the login request body.
type request struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	recorder *audit.Recorder
	limiter  *ratelimit.Limiter
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, recorder *audit.Recorder) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.db = db
	s.cfg = cfg
	s.recorder = recorder

	limit := cfg.Security.LoginRateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}

	window := time.Duration(cfg.Security.LoginRateWindowSec) * time.Second
	if window <= 0 {
		window = DefaultRateWindow
	}

	s.limiter = ratelimit.New(limit, window)

	app.Post(Path, s.Post)

	return nil
}

// Post handles the login request.
func (s *Service) Post(c *fiber.Ctx) error {
	req := new(request)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if !s.limiter.Allow(c.IP()) {
		log.Warn().Str("ip", c.IP()).Msg("login rate limit exceeded")

		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many login attempts"})
	}

	// find user in db
	var dbUser models.User

	result := s.db.Where("username = ?", req.Username).First(&dbUser)
	if result.Error != nil {
		s.recordAttempt(c, nil, req.Username, "unknown username")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": invalidCredentialsMsg})
	}

	// check if user is active
	if !dbUser.Active {
		s.recordAttempt(c, &dbUser.ID, req.Username, "account disabled")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": invalidCredentialsMsg})
	}

	// check if password matches
	if !dbUser.VerifyPassword(req.Password) {
		s.recordAttempt(c, &dbUser.ID, req.Username, "wrong password")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": invalidCredentialsMsg})
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session id")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	sessData := session.Data{User: dbUser}
	if err = sessData.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	s.limiter.Reset(c.IP())

	s.recorder.Record(audit.Event{
		UserID:    &dbUser.ID,
		Action:    models.ActionLogin,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Status:    models.AuditStatusSuccess,
	})

	return c.JSON(fiber.Map{
		"id":       dbUser.ID,
		"username": dbUser.Username,
	})
}

// recordAttempt records a failed login. Failed attempts feed the brute force
// detection rules, so they carry the attempted username in the details.
func (s *Service) recordAttempt(c *fiber.Ctx, userID *uint64, username, reason string) {
	s.recorder.Record(audit.Event{
		UserID:       userID,
		Action:       models.ActionLoginFailed,
		Details:      "username=" + username,
		IPAddress:    c.IP(),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
		Status:       models.AuditStatusFailure,
		ErrorMessage: reason,
	})
}
