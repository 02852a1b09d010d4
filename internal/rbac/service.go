package rbac

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// assignmentActive filters role assignments to those not yet expired.
// Expired assignments stay in the table as history but never grant anything.
const assignmentActive = "role_assignments.expires_at IS NULL OR role_assignments.expires_at > ?"

// Service provides authorization functionality: permission resolution,
// role administration and team membership management.
type Service struct {
	db *gorm.DB
}

// NewService creates a new rbac service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// HasPermission checks if a user has a specific permission through any of
// their non-expired role assignments.
func (s *Service) HasPermission(userID uint64, permission string) (bool, error) {
	var count int64

	err := s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN role_assignments ON role_assignments.role_id = role_permissions.role_id").
		Where("role_assignments.user_id = ? AND permissions.name = ?", userID, permission).
		Where(assignmentActive, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}

	return count > 0, nil
}

// HasAnyPermission checks if a user has at least one of the given permissions.
func (s *Service) HasAnyPermission(userID uint64, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}

	for _, perm := range permissions {
		has, err := s.HasPermission(userID, perm)
		if err != nil {
			return false, err
		}

		if has {
			return true, nil
		}
	}

	return false, nil
}

// HasAllPermissions checks if a user has all of the given permissions.
func (s *Service) HasAllPermissions(userID uint64, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return true, nil
	}

	for _, perm := range permissions {
		has, err := s.HasPermission(userID, perm)
		if err != nil {
			return false, err
		}

		if !has {
			return false, nil
		}
	}

	return true, nil
}

// HasRole checks if a user holds a role (by name) through a non-expired assignment.
func (s *Service) HasRole(userID uint64, roleName string) (bool, error) {
	var count int64

	err := s.db.Table("role_assignments").
		Joins("JOIN roles ON roles.id = role_assignments.role_id").
		Where("role_assignments.user_id = ? AND roles.name = ?", userID, roleName).
		Where(assignmentActive, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}

	return count > 0, nil
}

// GetUserPermissions retrieves the effective permission set of a user:
// the union of the permission sets of all non-expired role assignments.
// A user with no active assignments gets an empty (non-nil) slice.
func (s *Service) GetUserPermissions(userID uint64) ([]string, error) {
	permissions := make([]string, 0)

	err := s.db.Table("permissions").
		Select("DISTINCT permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN role_assignments ON role_assignments.role_id = role_permissions.role_id").
		Where("role_assignments.user_id = ?", userID).
		Where(assignmentActive, time.Now()).
		Order("permissions.name").
		Pluck("permissions.name", &permissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	return permissions, nil
}

// HasTeamPermission checks whether a user has a permission within a team.
// The global resolution always dominates: a globally granted permission
// applies in every team. Otherwise the user's active membership role in the
// team is mapped through the fixed team-role ladder. There is no global
// deny override.
func (s *Service) HasTeamPermission(userID, teamID uint64, permission string) (bool, error) {
	has, err := s.HasPermission(userID, permission)
	if err != nil {
		return false, err
	}

	if has {
		return true, nil
	}

	membership, err := s.activeMembership(userID, teamID)
	if err != nil {
		return false, err
	}

	if membership == nil {
		return false, nil
	}

	return teamRoleImplies(membership.Role, permission), nil
}
