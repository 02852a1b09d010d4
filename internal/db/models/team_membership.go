package models

import "time"

// TeamRole is the team-scoped role of a member. The roles form a fixed ordered
// ladder (VIEWER < MEMBER < LEAD < OWNER); a higher role implies every
// permission of the roles below it within that team.
type TeamRole string

const (
	// TeamRoleViewer grants read-only access within the team.
	TeamRoleViewer TeamRole = "VIEWER"
	// TeamRoleMember grants read access plus document editing within the team.
	TeamRoleMember TeamRole = "MEMBER"
	// TeamRoleLead additionally grants project and member management within the team.
	TeamRoleLead TeamRole = "LEAD"
	// TeamRoleOwner grants full control of the team, including team settings.
	// The last remaining OWNER of a team cannot be demoted or removed.
	TeamRoleOwner TeamRole = "OWNER"
)

// teamRoleRank maps each team role to its position on the ladder.
var teamRoleRank = map[TeamRole]int{
	TeamRoleViewer: 0,
	TeamRoleMember: 1,
	TeamRoleLead:   2,
	TeamRoleOwner:  3,
}

// Valid reports whether r is one of the known team roles.
func (r TeamRole) Valid() bool {
	_, ok := teamRoleRank[r]
	return ok
}

// AtLeast reports whether r ranks equal to or above other on the team role ladder.
func (r TeamRole) AtLeast(other TeamRole) bool {
	return teamRoleRank[r] >= teamRoleRank[other]
}

// TeamMembership relates a user to a team with a team-scoped role.
// At most one active membership (LeftAt null) may exist per (user, team) pair;
// a membership with LeftAt set is historical and ignored by resolution queries.
type TeamMembership struct {
	// ID is the unique identifier for the membership.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the member.
	UserID uint64 `gorm:"not null;index:idx_member_team"`
	// TeamID is the ID of the team.
	TeamID uint64 `gorm:"not null;index:idx_member_team"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Team is the associated team (loaded via foreign key).
	Team Team `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	// Role is the team-scoped role of the member.
	Role TeamRole `gorm:"type:varchar(20);not null"`
	// JoinedAt is the timestamp when the user joined the team.
	JoinedAt time.Time `gorm:"not null"`
	// LeftAt is the timestamp when the user left the team (nil while active).
	LeftAt *time.Time
}

// TableName specifies the database table name for the TeamMembership model.
// This overrides GORM's default pluralized table naming.
func (TeamMembership) TableName() string {
	return "team_memberships"
}
