package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamgrid/teamgrid/internal/db/models"
)

func TestTeamRoleImplies(t *testing.T) {
	testCases := []struct {
		role       models.TeamRole
		permission string
		expected   bool
	}{
		{models.TeamRoleViewer, PermProjectsRead, true},
		{models.TeamRoleViewer, PermDocumentsWrite, false},
		{models.TeamRoleMember, PermDocumentsWrite, true},
		{models.TeamRoleMember, PermProjectsRead, true},
		{models.TeamRoleMember, PermTeamsManageMembers, false},
		{models.TeamRoleLead, PermTeamsManageMembers, true},
		{models.TeamRoleLead, PermTeamsWrite, false},
		{models.TeamRoleOwner, PermTeamsWrite, true},
		{models.TeamRoleOwner, PermProjectsRead, true},
		{models.TeamRoleOwner, PermUsersManage, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role)+" "+tc.permission, func(t *testing.T) {
			assert.Equal(t, tc.expected, teamRoleImplies(tc.role, tc.permission))
		})
	}
}

func TestTeamRolePermissionsAccumulate(t *testing.T) {
	viewer := TeamRolePermissions(models.TeamRoleViewer)
	owner := TeamRolePermissions(models.TeamRoleOwner)

	assert.ElementsMatch(t,
		[]string{PermTeamsRead, PermProjectsRead, PermDocumentsRead}, viewer)

	// the owner set contains everything below it
	for _, perm := range viewer {
		assert.Contains(t, owner, perm)
	}

	assert.Contains(t, owner, PermTeamsWrite)
}

func TestAddTeamMember(t *testing.T) {
	svc := setupService(t)
	team := createTeam(t, svc.db, "core")
	user := createUser(t, svc.db, "joiner")

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.AddTeamMember(team.ID, user.ID, "SUPERUSER")
		require.ErrorIs(t, err, ErrInvalidTeamRole)
	})

	t.Run("unknown team", func(t *testing.T) {
		_, err := svc.AddTeamMember(99999, user.ID, models.TeamRoleMember)
		require.ErrorIs(t, err, ErrTeamNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.AddTeamMember(team.ID, 99999, models.TeamRoleMember)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("successful join", func(t *testing.T) {
		membership, err := svc.AddTeamMember(team.ID, user.ID, models.TeamRoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.TeamRoleMember, membership.Role)
		assert.Nil(t, membership.LeftAt)
	})

	t.Run("second active membership is rejected", func(t *testing.T) {
		_, err := svc.AddTeamMember(team.ID, user.ID, models.TeamRoleViewer)
		require.ErrorIs(t, err, ErrMembershipExists)
	})
}

func TestRejoinAfterLeaving(t *testing.T) {
	svc := setupService(t)
	team := createTeam(t, svc.db, "core")
	owner := createUser(t, svc.db, "owner")
	user := createUser(t, svc.db, "rejoiner")

	_, err := svc.AddTeamMember(team.ID, owner.ID, models.TeamRoleOwner)
	require.NoError(t, err)
	_, err = svc.AddTeamMember(team.ID, user.ID, models.TeamRoleLead)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveTeamMember(team.ID, user.ID))

	// rejoining creates a new membership; the old row stays as history
	membership, err := svc.AddTeamMember(team.ID, user.ID, models.TeamRoleViewer)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleViewer, membership.Role)

	var count int64
	require.NoError(t, svc.db.Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", team.ID, user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestUpdateTeamMemberRole(t *testing.T) {
	svc := setupService(t)
	team := createTeam(t, svc.db, "core")
	owner := createUser(t, svc.db, "owner")
	second := createUser(t, svc.db, "second")

	_, err := svc.AddTeamMember(team.ID, owner.ID, models.TeamRoleOwner)
	require.NoError(t, err)

	t.Run("not a member", func(t *testing.T) {
		_, err := svc.UpdateTeamMemberRole(team.ID, second.ID, models.TeamRoleLead)
		require.ErrorIs(t, err, ErrMembershipNotFound)
	})

	t.Run("sole owner cannot be demoted", func(t *testing.T) {
		_, err := svc.UpdateTeamMemberRole(team.ID, owner.ID, models.TeamRoleMember)
		require.ErrorIs(t, err, ErrLastOwner)
	})

	t.Run("demotion works once a second owner exists", func(t *testing.T) {
		_, err := svc.AddTeamMember(team.ID, second.ID, models.TeamRoleOwner)
		require.NoError(t, err)

		membership, err := svc.UpdateTeamMemberRole(team.ID, owner.ID, models.TeamRoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.TeamRoleMember, membership.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.UpdateTeamMemberRole(team.ID, second.ID, "CHIEF")
		require.ErrorIs(t, err, ErrInvalidTeamRole)
	})
}

func TestRemoveTeamMember(t *testing.T) {
	svc := setupService(t)
	team := createTeam(t, svc.db, "core")
	owner := createUser(t, svc.db, "owner")
	member := createUser(t, svc.db, "member")

	_, err := svc.AddTeamMember(team.ID, owner.ID, models.TeamRoleOwner)
	require.NoError(t, err)
	_, err = svc.AddTeamMember(team.ID, member.ID, models.TeamRoleMember)
	require.NoError(t, err)

	t.Run("sole owner cannot leave", func(t *testing.T) {
		require.ErrorIs(t, svc.RemoveTeamMember(team.ID, owner.ID), ErrLastOwner)
	})

	t.Run("regular member leaves", func(t *testing.T) {
		require.NoError(t, svc.RemoveTeamMember(team.ID, member.ID))

		members, err := svc.ListTeamMembers(team.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, owner.ID, members[0].UserID)
	})

	t.Run("leaving twice fails", func(t *testing.T) {
		require.ErrorIs(t, svc.RemoveTeamMember(team.ID, member.ID), ErrMembershipNotFound)
	})

	t.Run("owner leaves after handover", func(t *testing.T) {
		_, err := svc.AddTeamMember(team.ID, member.ID, models.TeamRoleOwner)
		require.NoError(t, err)

		require.NoError(t, svc.RemoveTeamMember(team.ID, owner.ID))

		members, err := svc.ListTeamMembers(team.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, member.ID, members[0].UserID)
	})
}
