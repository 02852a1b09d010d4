package rbac

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/db/models"
)

// teamRolePermissions maps each team role to the permissions it implies
// within that team, on top of whatever the roles below it imply. The ladder
// is a fixed total order (VIEWER < MEMBER < LEAD < OWNER), intentionally not
// a general hierarchy.
var teamRolePermissions = map[models.TeamRole][]string{
	models.TeamRoleViewer: {PermTeamsRead, PermProjectsRead, PermDocumentsRead},
	models.TeamRoleMember: {PermDocumentsWrite},
	models.TeamRoleLead:   {PermProjectsWrite, PermTeamsManageMembers},
	models.TeamRoleOwner:  {PermTeamsWrite},
}

// ladder lists the team roles from lowest to highest rank.
var ladder = []models.TeamRole{
	models.TeamRoleViewer,
	models.TeamRoleMember,
	models.TeamRoleLead,
	models.TeamRoleOwner,
}

// teamRoleImplies reports whether the team role grants the permission,
// accumulating the implied sets of every role up to and including it.
func teamRoleImplies(role models.TeamRole, permission string) bool {
	for _, step := range ladder {
		for _, perm := range teamRolePermissions[step] {
			if perm == permission {
				return true
			}
		}

		if step == role {
			break
		}
	}

	return false
}

// TeamRolePermissions returns the full implied permission set of a team role.
func TeamRolePermissions(role models.TeamRole) []string {
	var out []string

	for _, step := range ladder {
		out = append(out, teamRolePermissions[step]...)

		if step == role {
			break
		}
	}

	return out
}

// activeMembership loads the user's active membership in a team, or nil if none.
func (s *Service) activeMembership(userID, teamID uint64) (*models.TeamMembership, error) {
	var membership models.TeamMembership

	err := s.db.Where("user_id = ? AND team_id = ? AND left_at IS NULL", userID, teamID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to load team membership: %w", err)
	}

	return &membership, nil
}

// AddTeamMember adds a user to a team with the given team role.
// A user may hold at most one active membership per team.
func (s *Service) AddTeamMember(teamID, userID uint64, role models.TeamRole) (*models.TeamMembership, error) {
	if !role.Valid() {
		return nil, ErrInvalidTeamRole
	}

	var team models.Team
	if err := s.db.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}

		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	existing, err := s.activeMembership(userID, teamID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, ErrMembershipExists
	}

	membership := &models.TeamMembership{
		UserID:   userID,
		TeamID:   teamID,
		Role:     role,
		JoinedAt: time.Now(),
	}

	if err := s.db.Create(membership).Error; err != nil {
		return nil, fmt.Errorf("failed to create team membership: %w", err)
	}

	return membership, nil
}

// UpdateTeamMemberRole changes a member's team role. Demoting the sole
// remaining OWNER is rejected: ownership must be transferred first.
func (s *Service) UpdateTeamMemberRole(teamID, userID uint64, role models.TeamRole) (*models.TeamMembership, error) {
	if !role.Valid() {
		return nil, ErrInvalidTeamRole
	}

	membership, err := s.activeMembership(userID, teamID)
	if err != nil {
		return nil, err
	}

	if membership == nil {
		return nil, ErrMembershipNotFound
	}

	if membership.Role == models.TeamRoleOwner && role != models.TeamRoleOwner {
		sole, err := s.isSoleOwner(teamID, userID)
		if err != nil {
			return nil, err
		}

		if sole {
			return nil, ErrLastOwner
		}
	}

	membership.Role = role

	if err := s.db.Save(membership).Error; err != nil {
		return nil, fmt.Errorf("failed to update team membership: %w", err)
	}

	return membership, nil
}

// RemoveTeamMember ends a user's active membership in a team by stamping
// LeftAt, keeping the row as history. Removing the sole remaining OWNER is
// rejected.
func (s *Service) RemoveTeamMember(teamID, userID uint64) error {
	membership, err := s.activeMembership(userID, teamID)
	if err != nil {
		return err
	}

	if membership == nil {
		return ErrMembershipNotFound
	}

	if membership.Role == models.TeamRoleOwner {
		sole, err := s.isSoleOwner(teamID, userID)
		if err != nil {
			return err
		}

		if sole {
			return ErrLastOwner
		}
	}

	now := time.Now()
	membership.LeftAt = &now

	if err := s.db.Save(membership).Error; err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	return nil
}

// ListTeamMembers returns the active memberships of a team.
func (s *Service) ListTeamMembers(teamID uint64) ([]models.TeamMembership, error) {
	var memberships []models.TeamMembership

	err := s.db.Preload("User").
		Where("team_id = ? AND left_at IS NULL", teamID).
		Order("joined_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return memberships, nil
}

// isSoleOwner reports whether userID is the only active OWNER of the team.
func (s *Service) isSoleOwner(teamID, userID uint64) (bool, error) {
	var count int64

	err := s.db.Model(&models.TeamMembership{}).
		Where("team_id = ? AND role = ? AND left_at IS NULL AND user_id <> ?",
			teamID, models.TeamRoleOwner, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count team owners: %w", err)
	}

	return count == 0, nil
}
