package models

import "time"

// AuditStatus is the outcome of the audited operation.
type AuditStatus string

const (
	// AuditStatusSuccess indicates the operation completed normally.
	AuditStatusSuccess AuditStatus = "SUCCESS"
	// AuditStatusWarning indicates the operation completed with a notable condition.
	AuditStatusWarning AuditStatus = "WARNING"
	// AuditStatusFailure indicates the operation failed or was denied.
	AuditStatusFailure AuditStatus = "FAILURE"
)

// Well-known audit action identifiers used by the security heuristics.
// Handlers are free to record any action string; these are the ones the
// anomaly detector keys on.
const (
	// ActionLogin is recorded on a successful authentication.
	ActionLogin = "LOGIN"
	// ActionLoginFailed is recorded on a failed authentication attempt.
	ActionLoginFailed = "LOGIN_FAILED"
	// ActionLogout is recorded when a session is terminated by the user.
	ActionLogout = "LOGOUT"
	// ActionSensitiveAccess is recorded whenever sensitive data is read.
	ActionSensitiveAccess = "SENSITIVE_DATA_ACCESSED"
	// ActionIncidentResolved is recorded when a security incident is resolved.
	ActionIncidentResolved = "INCIDENT_RESOLVED"
)

// AuditLog is an append-only record of a single activity event.
// Entries are immutable once written: they are never updated or deleted
// individually, only removed in bulk by the retention cleanup.
type AuditLog struct {
	// ID is the unique identifier for the entry.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the acting user. Nil for anonymous or system events.
	UserID *uint64 `gorm:"index:idx_audit_user_created,priority:1"`
	// Action is the action identifier (e.g. "LOGIN_FAILED", "documents.update").
	Action string `gorm:"size:100;not null;index:idx_audit_action_created,priority:1"`
	// ResourceType is the kind of resource acted on (e.g. "document", "role").
	ResourceType string `gorm:"size:100;not null"`
	// ResourceID is the optional identifier of the affected resource.
	ResourceID string `gorm:"size:100"`
	// Details is a free-form payload describing the event.
	Details string `gorm:"type:text"`
	// IPAddress is the origin address of the request.
	IPAddress string `gorm:"size:45"`
	// UserAgent is the origin agent string of the request.
	UserAgent string `gorm:"size:255"`
	// Status is the outcome of the operation.
	Status AuditStatus `gorm:"type:varchar(10);not null"`
	// ErrorMessage is the optional error text for failed operations.
	ErrorMessage string `gorm:"size:255"`
	// DurationMS is the optional duration of the operation in milliseconds.
	DurationMS *int64
	// CreatedAt is the instant the event was recorded.
	CreatedAt time.Time `gorm:"index:idx_audit_user_created,priority:2;index:idx_audit_action_created,priority:2"`
}

// TableName specifies the database table name for the AuditLog model.
// This overrides GORM's default pluralized table naming.
func (AuditLog) TableName() string {
	return "audit_logs"
}
