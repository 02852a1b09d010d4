// Package models contains database model definitions.
package models

// Setting represents a configuration setting stored in the database.
// Used for small operational state such as the last retention cleanup run.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique"`
	Value []byte `gorm:"type:blob"`
}
