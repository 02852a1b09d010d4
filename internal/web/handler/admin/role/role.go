// Package role implements the role administration endpoints: role CRUD,
// assignment and revocation, and the permission catalog listing. All routes
// require the roles.manage permission.
package role

import (
	"errors"
	"strconv"
	"strings"
	"time"

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
	// Path is the base path of the role administration endpoints.
	Path = handler.RootPath + "admin/roles"

	// PermissionsPath lists the permission catalog.
	PermissionsPath = handler.RootPath + "admin/permissions"
)

// roleRequest is the create and update request body.
type roleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"required"`
}

// assignRequest is the role assignment request body.
type assignRequest struct {
	UserID    uint64     `json:"user_id" validate:"required"`
	Role      string     `json:"role" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// revokeRequest is the role revocation request body.
type revokeRequest struct {
	UserID uint64 `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// Service is the role administration handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	rbac      *rbac.Service
	validator *validator.Validate
}

// Handler is the role administration handler.
var Handler = Service{}

// Init initializes the role administration handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, rbacService *rbac.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.rbac = rbacService
	s.validator = validator.New()

	manage := rbac.RequirePermission(rbacService, rbac.PermRolesManage)

	app.Get(Path, manage, s.List)
	app.Post(Path, manage, s.Create)
	app.Put(Path+"/:roleID", manage, s.Update)
	app.Delete(Path+"/:roleID", manage, s.Delete)
	app.Post(Path+"/assign", manage, s.Assign)
	app.Post(Path+"/revoke", manage, s.Revoke)
	app.Get(PermissionsPath, manage, s.ListPermissions)

	return nil
}

// List returns all roles with their permission sets.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.rbac.ListRoles()
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list roles"})
	}

	out := make([]fiber.Map, 0, len(roles))

	for i := range roles {
		permissions, err := s.rbac.GetRolePermissions(roles[i].ID)
		if err != nil {
			log.Error().Err(err).Uint("role_id", roles[i].ID).Msg("failed to load role permissions")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list roles"})
		}

		out = append(out, fiber.Map{
			"id":          roles[i].ID,
			"name":        roles[i].Name,
			"description": roles[i].Description,
			"is_system":   roles[i].IsSystem,
			"permissions": permissions,
		})
	}

	return c.JSON(fiber.Map{"roles": out})
}

// Create creates a custom role.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(roleRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	role, err := s.rbac.CreateRole(req.Name, req.Description, req.Permissions)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrUnknownPermission):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Str("role", req.Name).Msg("failed to create role")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create role"})
		}
	}

	c.Locals(auditmw.LocalResourceType, "role")
	c.Locals(auditmw.LocalResourceID, strconv.FormatUint(uint64(role.ID), 10))
	c.Locals(auditmw.LocalDetails, "name="+role.Name)

	return c.Status(fiber.StatusCreated).JSON(role)
}

// Update renames a custom role or replaces its permission set.
func (s *Service) Update(c *fiber.Ctx) error {
	roleID, err := strconv.ParseUint(c.Params("roleID"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role id"})
	}

	req := new(roleRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	role, err := s.rbac.UpdateRole(uint(roleID), req.Name, req.Description, req.Permissions)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrSystemRoleImmutable):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrUnknownPermission), errors.Is(err, rbac.ErrRoleExists):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("role_id", roleID).Msg("failed to update role")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update role"})
		}
	}

	c.Locals(auditmw.LocalResourceType, "role")
	c.Locals(auditmw.LocalResourceID, c.Params("roleID"))
	c.Locals(auditmw.LocalDetails, "name="+role.Name)

	return c.JSON(role)
}

// Delete removes a custom role and all of its assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	roleID, err := strconv.ParseUint(c.Params("roleID"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role id"})
	}

	if err := s.rbac.DeleteRole(uint(roleID)); err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrSystemRoleImmutable):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("role_id", roleID).Msg("failed to delete role")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete role"})
		}
	}

	c.Locals(auditmw.LocalResourceType, "role")
	c.Locals(auditmw.LocalResourceID, c.Params("roleID"))

	return c.JSON(fiber.Map{"status": "deleted"})
}

// Assign grants a role to a user, optionally with an expiry instant.
func (s *Service) Assign(c *fiber.Ctx) error {
	req := new(assignRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	grantedBy := currentUserID(c)

	assignment, err := s.rbac.AssignRole(req.UserID, req.Role, grantedBy, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleNotFound), errors.Is(err, rbac.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, rbac.ErrAssignmentExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Uint64("user_id", req.UserID).Str("role", req.Role).
				Msg("failed to assign role")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to assign role"})
		}
	}

	c.Locals(auditmw.LocalResourceType, "role_assignment")
	c.Locals(auditmw.LocalDetails, "user_id="+strconv.FormatUint(req.UserID, 10)+" role="+req.Role)

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

// Revoke removes a role from a user. Revoking a role the user does not hold
// succeeds without effect.
func (s *Service) Revoke(c *fiber.Ctx) error {
	req := new(revokeRequest)
	if msg, ok := s.decode(c, req); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	if err := s.rbac.RevokeRole(req.UserID, req.Role); err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}

		log.Error().Err(err).Uint64("user_id", req.UserID).Str("role", req.Role).
			Msg("failed to revoke role")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to revoke role"})
	}

	c.Locals(auditmw.LocalResourceType, "role_assignment")
	c.Locals(auditmw.LocalDetails, "user_id="+strconv.FormatUint(req.UserID, 10)+" role="+req.Role)

	return c.JSON(fiber.Map{"status": "revoked"})
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(c *fiber.Ctx) error {
	permissions, err := s.rbac.ListPermissions()
	if err != nil {
		log.Error().Err(err).Msg("failed to list permissions")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list permissions"})
	}

	return c.JSON(fiber.Map{"permissions": permissions})
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

// currentUserID returns the acting user's ID from the request locals.
func currentUserID(c *fiber.Ctx) uint64 {
	if user, ok := c.Locals("CurrentUser").(models.User); ok {
		return user.ID
	}

	return 0
}
