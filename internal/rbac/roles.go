package rbac

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/db/models"
)

// defaultRoles are the system roles seeded at bootstrap. Seeding is an
// idempotent upsert keyed by role name and safe to re-run on every start.
var defaultRoles = []struct {
	Name        string
	Description string
	Permissions []string
}{
	{
		Name:        "admin",
		Description: "Full administrative access to the platform",
		Permissions: []string{
			PermProjectsRead, PermProjectsWrite,
			PermDocumentsRead, PermDocumentsWrite,
			PermTeamsRead, PermTeamsWrite, PermTeamsManageMembers,
			PermUsersManage, PermRolesManage,
			PermAuditRead, PermIncidentsManage,
			PermReportsView, PermSettingsManage,
			PermSensitiveAccess,
		},
	},
	{
		Name:        "member",
		Description: "Regular platform member",
		Permissions: []string{
			PermProjectsRead, PermProjectsWrite,
			PermDocumentsRead, PermDocumentsWrite,
			PermTeamsRead, PermReportsView,
		},
	},
	{
		Name:        "viewer",
		Description: "Read-only access to projects and documents",
		Permissions: []string{
			PermProjectsRead, PermDocumentsRead, PermTeamsRead,
		},
	},
	{
		Name:        "security_auditor",
		Description: "Access to the audit log and security incidents",
		Permissions: []string{
			PermAuditRead, PermIncidentsManage, PermReportsView,
		},
	},
}

// CreateRole creates a custom role with the given permission identifiers.
// Every identifier must exist in the permission catalog.
func (s *Service) CreateRole(name, description string, permissions []string) (*models.Role, error) {
	for _, perm := range permissions {
		if !ValidPermission(perm) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, perm)
		}
	}

	var existing models.Role
	if err := s.db.Where("name = ?", name).First(&existing).Error; err == nil {
		return nil, ErrRoleExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}

	role := &models.Role{Name: name, Description: description}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(role).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRoleExists
			}

			return fmt.Errorf("failed to create role: %w", err)
		}

		return replaceRolePermissions(tx, role.ID, permissions)
	})
	if err != nil {
		return nil, err
	}

	return role, nil
}

// UpdateRole updates a role's description and permission set. Renaming is
// allowed for custom roles only; system roles keep their name forever.
func (s *Service) UpdateRole(roleID uint, name, description string, permissions []string) (*models.Role, error) {
	for _, perm := range permissions {
		if !ValidPermission(perm) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, perm)
		}
	}

	var role models.Role
	if err := s.db.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	if role.IsSystem && name != "" && name != role.Name {
		return nil, ErrSystemRoleImmutable
	}

	if name != "" {
		role.Name = name
	}

	role.Description = description

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&role).Error; err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		return replaceRolePermissions(tx, role.ID, permissions)
	})
	if err != nil {
		return nil, err
	}

	return &role, nil
}

// DeleteRole deletes a custom role. All assignments of the role are detached
// first; system roles cannot be deleted.
func (s *Service) DeleteRole(roleID uint) error {
	var role models.Role
	if err := s.db.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		return fmt.Errorf("failed to load role: %w", err)
	}

	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RoleAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to detach role assignments: %w", err)
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("failed to detach role permissions: %w", err)
		}

		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}

		return nil
	})
}

// AssignRole grants a role to a user, optionally with an expiry instant.
// A duplicate active assignment is rejected; an expired assignment for the
// same role is refreshed in place so the (user, role) uniqueness holds.
func (s *Service) AssignRole(userID uint64, roleName string, grantedBy uint64, expiresAt *time.Time) (*models.RoleAssignment, error) {
	var role models.Role
	if err := s.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now()

	var existing models.RoleAssignment

	err := s.db.Where("user_id = ? AND role_id = ?", userID, role.ID).First(&existing).Error

	switch {
	case err == nil:
		if existing.ExpiresAt == nil || existing.ExpiresAt.After(now) {
			return nil, ErrAssignmentExists
		}

		// The previous grant expired: refresh it instead of inserting a
		// second row, keeping the (user, role) unique constraint intact.
		existing.GrantedBy = grantedBy
		existing.GrantedAt = now
		existing.ExpiresAt = expiresAt

		if err := s.db.Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to refresh role assignment: %w", err)
		}

		return &existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to check existing assignment: %w", err)
	}

	assignment := &models.RoleAssignment{
		UserID:    userID,
		RoleID:    role.ID,
		GrantedBy: grantedBy,
		GrantedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := s.db.Create(assignment).Error; err != nil {
		// A concurrent grant for the same (user, role) pair lost the race
		// against the unique index; report it as a duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAssignmentExists
		}

		return nil, fmt.Errorf("failed to create role assignment: %w", err)
	}

	return assignment, nil
}

// RevokeRole removes a user's assignment of the named role.
// Revoking a role the user does not hold is a no-op.
func (s *Service) RevokeRole(userID uint64, roleName string) error {
	var role models.Role
	if err := s.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		return fmt.Errorf("failed to load role: %w", err)
	}

	err := s.db.Where("user_id = ? AND role_id = ?", userID, role.ID).
		Delete(&models.RoleAssignment{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	return nil
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles() ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// GetRolePermissions returns the permission identifiers owned by a role.
func (s *Service) GetRolePermissions(roleID uint) ([]string, error) {
	permissions := make([]string, 0)

	err := s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.name").
		Pluck("permissions.name", &permissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}

	return permissions, nil
}

// ListPermissions returns the permission catalog rows ordered by name.
func (s *Service) ListPermissions() ([]models.Permission, error) {
	var permissions []models.Permission
	if err := s.db.Order("name ASC").Find(&permissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	return permissions, nil
}

// InitializeDefaultRoles seeds the permission catalog rows and the system
// roles. It upserts by name and is safe to run on every bootstrap.
func (s *Service) InitializeDefaultRoles() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for name, description := range catalog {
			var perm models.Permission

			err := tx.Where("name = ?", name).
				FirstOrCreate(&perm, models.Permission{
					Name:        name,
					Resource:    permissionResource(name),
					Action:      permissionAction(name),
					Description: description,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", name, err)
			}
		}

		for _, def := range defaultRoles {
			var role models.Role

			err := tx.Where("name = ?", def.Name).
				FirstOrCreate(&role, models.Role{
					Name:        def.Name,
					Description: def.Description,
					IsSystem:    true,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to seed role %s: %w", def.Name, err)
			}

			if !role.IsSystem {
				role.IsSystem = true
				if err := tx.Save(&role).Error; err != nil {
					return fmt.Errorf("failed to mark role %s as system: %w", def.Name, err)
				}
			}

			if err := replaceRolePermissions(tx, role.ID, def.Permissions); err != nil {
				return err
			}
		}

		return nil
	})
}

// replaceRolePermissions swaps a role's permission set for the given
// identifiers. Identifiers are resolved against the seeded catalog rows.
func replaceRolePermissions(tx *gorm.DB, roleID uint, permissions []string) error {
	if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	for _, name := range permissions {
		var perm models.Permission
		if err := tx.Where("name = ?", name).First(&perm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %q", ErrUnknownPermission, name)
			}

			return fmt.Errorf("failed to resolve permission %s: %w", name, err)
		}

		link := models.RolePermission{RoleID: roleID, PermissionID: perm.ID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link permission %s: %w", name, err)
		}
	}

	return nil
}

// permissionResource extracts the resource part of a permission identifier.
func permissionResource(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i]
		}
	}

	return name
}

// permissionAction extracts the action part of a permission identifier.
func permissionAction(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[i+1:]
		}
	}

	return ""
}
