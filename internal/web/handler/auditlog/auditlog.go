// Package auditlog implements the audit trail read endpoints. Both routes
// require the audit.read permission. Reading the trail is itself classified
// as sensitive data access and recorded, which feeds the volume rules of the
// anomaly detector.
package auditlog

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/rbac"
	"github.com/teamgrid/teamgrid/internal/web/handler"
	auditmw "github.com/teamgrid/teamgrid/internal/web/middleware/audit"
)

const (
	// Path is the base path of the audit endpoints.
	Path = handler.RootPath + "audit"

	// DefaultActivityDays is the default lookback of the activity report.
	DefaultActivityDays = 30
)

// Service is the audit trail handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	recorder *audit.Recorder
}

// Handler is the audit trail handler.
var Handler = Service{}

// Init initializes the audit trail handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB,
	rbacService *rbac.Service, recorder *audit.Recorder,
) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.recorder = recorder

	read := rbac.RequirePermission(rbacService, rbac.PermAuditRead)

	app.Get(Path+"/logs", read, s.GetLogs)
	app.Get(Path+"/users/:userID/activity", read, s.GetUserActivity)

	return nil
}

// GetLogs returns a page of audit entries, newest first.
func (s *Service) GetLogs(c *fiber.Ctx) error {
	filter := audit.Filter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		Status:       models.AuditStatus(c.Query("status")),
	}

	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
		}

		filter.UserID = &userID
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid from timestamp"})
		}

		filter.From = &from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid to timestamp"})
		}

		filter.To = &to
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", audit.DefaultPageSize)

	logs, total, err := s.recorder.GetLogs(filter, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to query audit logs")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to query audit logs"})
	}

	s.stampSensitiveRead(c, "audit_log", "")

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUserActivity returns the recent entries and per-action counts for one user.
func (s *Service) GetUserActivity(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	days := c.QueryInt("days", DefaultActivityDays)
	if days < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid days"})
	}

	entries, counts, err := s.recorder.GetUserActivity(userID, days)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to query user activity")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to query user activity"})
	}

	s.stampSensitiveRead(c, "user_activity", c.Params("userID"))

	return c.JSON(fiber.Map{
		"entries": entries,
		"counts":  counts,
		"days":    days,
	})
}

// stampSensitiveRead marks the request for the audit middleware so the read
// is recorded as sensitive data access.
func (s *Service) stampSensitiveRead(c *fiber.Ctx, resourceType, resourceID string) {
	c.Locals(auditmw.LocalAction, models.ActionSensitiveAccess)
	c.Locals(auditmw.LocalResourceType, resourceType)

	if resourceID != "" {
		c.Locals(auditmw.LocalResourceID, resourceID)
	}
}
