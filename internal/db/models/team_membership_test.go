package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamRoleValid(t *testing.T) {
	assert.True(t, TeamRoleViewer.Valid())
	assert.True(t, TeamRoleMember.Valid())
	assert.True(t, TeamRoleLead.Valid())
	assert.True(t, TeamRoleOwner.Valid())

	assert.False(t, TeamRole("ADMIN").Valid())
	assert.False(t, TeamRole("").Valid())
	assert.False(t, TeamRole("owner").Valid(), "roles are case sensitive")
}

func TestTeamRoleAtLeast(t *testing.T) {
	assert.True(t, TeamRoleOwner.AtLeast(TeamRoleViewer))
	assert.True(t, TeamRoleLead.AtLeast(TeamRoleLead))
	assert.True(t, TeamRoleMember.AtLeast(TeamRoleViewer))

	assert.False(t, TeamRoleViewer.AtLeast(TeamRoleMember))
	assert.False(t, TeamRoleLead.AtLeast(TeamRoleOwner))
}
