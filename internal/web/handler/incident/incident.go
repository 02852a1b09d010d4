// Package incident implements the security incident endpoints. All routes
// require the incidents.manage permission.
package incident

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/incident"
	"github.com/teamgrid/teamgrid/internal/rbac"
	"github.com/teamgrid/teamgrid/internal/web/handler"
	auditmw "github.com/teamgrid/teamgrid/internal/web/middleware/audit"
)

const (
	// Path is the base path of the incident endpoints.
	Path = handler.RootPath + "incidents"

	// DefaultPageSize is the default incident page size.
	DefaultPageSize = 50
)

// statusRequest is the status change request body.
type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// resolveRequest is the resolution request body.
type resolveRequest struct {
	Resolution string `json:"resolution" validate:"required,min=3"`
}

// Service is the incident handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	incidents *incident.Manager
	validator *validator.Validate
}

// Handler is the incident handler.
var Handler = Service{}

// Init initializes the incident handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB,
	rbacService *rbac.Service, incidents *incident.Manager,
) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.incidents = incidents
	s.validator = validator.New()

	manage := rbac.RequirePermission(rbacService, rbac.PermIncidentsManage)

	app.Get(Path, manage, s.List)
	app.Put(Path+"/:incidentID/status", manage, s.UpdateStatus)
	app.Post(Path+"/:incidentID/resolve", manage, s.Resolve)

	return nil
}

// List returns a page of incidents, newest detection first.
func (s *Service) List(c *fiber.Ctx) error {
	filter := incident.Filter{
		Type:     models.IncidentType(c.Query("type")),
		Status:   models.IncidentStatus(c.Query("status")),
		Severity: models.IncidentSeverity(c.Query("severity")),
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", DefaultPageSize)

	incidents, total, err := s.incidents.List(filter, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list incidents")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list incidents"})
	}

	return c.JSON(fiber.Map{
		"incidents": incidents,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// UpdateStatus moves an incident through its workflow.
func (s *Service) UpdateStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("incidentID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid incident id"})
	}

	req := new(statusRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	inc, err := s.incidents.UpdateStatus(id, models.IncidentStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, incident.ErrIncidentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, incident.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("incident_id", id).Msg("failed to update incident status")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update incident"})
		}
	}

	c.Locals(auditmw.LocalResourceType, "security_incident")
	c.Locals(auditmw.LocalResourceID, c.Params("incidentID"))
	c.Locals(auditmw.LocalDetails, "status="+req.Status)

	return c.JSON(inc)
}

// Resolve closes an incident with a resolution note. The resolution itself is
// recorded in the audit trail by the incident manager.
func (s *Service) Resolve(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("incidentID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid incident id"})
	}

	req := new(resolveRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	var resolvedBy uint64
	if user, ok := c.Locals("CurrentUser").(models.User); ok {
		resolvedBy = user.ID
	}

	inc, err := s.incidents.Resolve(id, req.Resolution, resolvedBy)
	if err != nil {
		switch {
		case errors.Is(err, incident.ErrIncidentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, incident.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("incident_id", id).Msg("failed to resolve incident")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve incident"})
		}
	}

	c.Locals(auditmw.LocalResourceType, "security_incident")
	c.Locals(auditmw.LocalResourceID, c.Params("incidentID"))

	return c.JSON(inc)
}

// decode parses and validates a JSON request body. On failure it returns a
// user-facing message and false.
func (s *Service) decode(c *fiber.Ctx, out any) (string, bool) {
	if err := c.BodyParser(out); err != nil {
		return "invalid request body", false
	}

	if err := s.validator.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors

		errors.As(err, &validationErrors)

		messages := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			messages[i] = "field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
		}

		return strings.Join(messages, "; "), false
	}

	return "", true
}
