// Package team implements the team membership endpoints. Mutations require
// the teams.manage_members permission within the addressed team; the member
// listing requires teams.read. Global grants of the same permissions also
// satisfy the checks.
package team

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
	"github.com/teamgrid/teamgrid/internal/rbac"
	"github.com/teamgrid/teamgrid/internal/web/handler"
	auditmw "github.com/teamgrid/teamgrid/internal/web/middleware/audit"
)

const (
	// Path is the base path of the team endpoints.
	Path = handler.RootPath + "teams"

	teamParam = "teamID"
)

// memberRequest is the add-member request body.
type memberRequest struct {
	UserID uint64 `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// roleChangeRequest is the member role change request body.
type roleChangeRequest struct {
	Role string `json:"role" validate:"required"`
}

// Service is the team membership handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	rbac      *rbac.Service
	validator *validator.Validate
}

// Handler is the team membership handler.
var Handler = Service{}

// Init initializes the team membership handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, rbacService *rbac.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.rbac = rbacService
	s.validator = validator.New()

	read := rbac.RequireTeamPermission(rbacService, teamParam, rbac.PermTeamsRead)
	manage := rbac.RequireTeamPermission(rbacService, teamParam, rbac.PermTeamsManageMembers)

	app.Get(Path+"/:teamID/members", read, s.ListMembers)
	app.Post(Path+"/:teamID/members", manage, s.AddMember)
	app.Put(Path+"/:teamID/members/:userID", manage, s.UpdateMemberRole)
	app.Delete(Path+"/:teamID/members/:userID", manage, s.RemoveMember)

	return nil
}

// ListMembers returns the active members of a team.
func (s *Service) ListMembers(c *fiber.Ctx) error {
	teamID, err := pathID(c, teamParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team id"})
	}

	members, err := s.rbac.ListTeamMembers(teamID)
	if err != nil {
		if errors.Is(err, rbac.ErrTeamNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}

		log.Error().Err(err).Uint64("team_id", teamID).Msg("failed to list team members")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list team members"})
	}

	out := make([]fiber.Map, 0, len(members))

	for i := range members {
		out = append(out, fiber.Map{
			"user_id":   members[i].UserID,
			"username":  members[i].User.Username,
			"role":      members[i].Role,
			"joined_at": members[i].JoinedAt,
		})
	}

	return c.JSON(fiber.Map{"members": out})
}

// AddMember adds a user to a team with the given team role.
func (s *Service) AddMember(c *fiber.Ctx) error {
	teamID, err := pathID(c, teamParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team id"})
	}

	req := new(memberRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	membership, err := s.rbac.AddTeamMember(teamID, req.UserID, models.TeamRole(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrTeamNotFound), errors.Is(err, rbac.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrInvalidTeamRole):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrMembershipExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("team_id", teamID).Uint64("user_id", req.UserID).
				Msg("failed to add team member")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to add team member"})
		}
	}

	s.stampAudit(c, teamID, req.UserID, "role="+req.Role)

	return c.Status(fiber.StatusCreated).JSON(membership)
}

// UpdateMemberRole changes the team role of an existing member.
func (s *Service) UpdateMemberRole(c *fiber.Ctx) error {
	teamID, err := pathID(c, teamParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team id"})
	}

	userID, err := pathID(c, "userID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	req := new(roleChangeRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	membership, err := s.rbac.UpdateTeamMemberRole(teamID, userID, models.TeamRole(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrMembershipNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrInvalidTeamRole):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrLastOwner):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("team_id", teamID).Uint64("user_id", userID).
				Msg("failed to update team member role")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update member role"})
		}
	}

	s.stampAudit(c, teamID, userID, "role="+req.Role)

	return c.JSON(membership)
}

// RemoveMember removes a member from a team.
func (s *Service) RemoveMember(c *fiber.Ctx) error {
	teamID, err := pathID(c, teamParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team id"})
	}

	userID, err := pathID(c, "userID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	if err := s.rbac.RemoveTeamMember(teamID, userID); err != nil {
		switch {
		case errors.Is(err, rbac.ErrMembershipNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrLastOwner):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("team_id", teamID).Uint64("user_id", userID).
				Msg("failed to remove team member")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to remove team member"})
		}
	}

	s.stampAudit(c, teamID, userID, "")

	return c.JSON(fiber.Map{"status": "removed"})
}

// stampAudit attaches resource details for the audit middleware.
func (s *Service) stampAudit(c *fiber.Ctx, teamID, userID uint64, details string) {
	c.Locals(auditmw.LocalResourceType, "team_membership")
	c.Locals(auditmw.LocalResourceID, strconv.FormatUint(teamID, 10))

	userPart := "user_id=" + strconv.FormatUint(userID, 10)
	if details != "" {
		details = userPart + " " + details
	} else {
		details = userPart
	}

	c.Locals(auditmw.LocalDetails, details)
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

// pathID parses a numeric route parameter.
func pathID(c *fiber.Ctx, param string) (uint64, error) {
	return strconv.ParseUint(c.Params(param), 10, 64)
}
