package models

import "time"

// Team represents a collaboration team that owns projects and documents.
// Access inside a team is governed by team memberships and their team-scoped roles.
type Team struct {
	// ID is the unique identifier for the team.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the team.
	Name string `gorm:"size:100;not null"`
	// Description provides a human-readable explanation of the team's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the team was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the team was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Team model.
// This overrides GORM's default pluralized table naming.
func (Team) TableName() string {
	return "teams"
}
