package models

import "time"

// RoleAssignment relates a user to a role in the role-based access control (RBAC) system.
// Unlike the role-permission mapping it is a dated grant: it records who granted the role,
// when, and optionally when the grant expires. Expired assignments are ignored by all
// permission resolution queries but are kept as a historical record.
type RoleAssignment struct {
	// ID is the unique identifier for the assignment.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the user holding the role.
	// Combined with RoleID this forms a unique constraint: a user may hold a given
	// role at most once. Concurrent duplicate grants are rejected by the index.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_user_role"`
	// RoleID is the ID of the granted role.
	RoleID uint `gorm:"not null;uniqueIndex:idx_user_role"`
	// User is the associated user (loaded via foreign key).
	// When a user is deleted, all their role assignments are automatically removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Role is the associated role (loaded via foreign key).
	// When a role is deleted, all its assignments are automatically removed (CASCADE).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// GrantedBy is the ID of the user who granted the role (0 for system grants).
	GrantedBy uint64
	// GrantedAt is the timestamp when the role was granted.
	GrantedAt time.Time `gorm:"not null"`
	// ExpiresAt is the optional expiry instant. A nil value means the grant never expires.
	// An assignment with ExpiresAt in the past is treated as absent by resolution queries.
	ExpiresAt *time.Time `gorm:"index"`
}

// TableName specifies the database table name for the RoleAssignment model.
// This overrides GORM's default pluralized table naming.
func (RoleAssignment) TableName() string {
	return "role_assignments"
}
