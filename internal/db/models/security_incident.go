package models

import (
	"strconv"
	"strings"
	"time"
)

// IncidentType is the closed set of security incident categories.
type IncidentType string

const (
	// IncidentTypeBruteForce covers repeated failed authentication attempts.
	IncidentTypeBruteForce IncidentType = "BRUTE_FORCE"
	// IncidentTypeSuspiciousActivity covers abnormal but non-specific behaviour
	// such as excessive sensitive-data access or access from many origins.
	IncidentTypeSuspiciousActivity IncidentType = "SUSPICIOUS_ACTIVITY"
	// IncidentTypeUnauthorizedAccess covers confirmed access without permission.
	IncidentTypeUnauthorizedAccess IncidentType = "UNAUTHORIZED_ACCESS"
	// IncidentTypeDataLeak covers suspected exfiltration of data.
	IncidentTypeDataLeak IncidentType = "DATA_LEAK"
)

// IncidentSeverity grades how serious an incident is.
type IncidentSeverity string

const (
	// IncidentSeverityLow marks informational incidents.
	IncidentSeverityLow IncidentSeverity = "LOW"
	// IncidentSeverityMedium marks incidents that warrant review.
	IncidentSeverityMedium IncidentSeverity = "MEDIUM"
	// IncidentSeverityHigh marks incidents that need prompt attention.
	IncidentSeverityHigh IncidentSeverity = "HIGH"
	// IncidentSeverityCritical marks incidents requiring immediate response.
	IncidentSeverityCritical IncidentSeverity = "CRITICAL"
)

// IncidentStatus is the workflow state of an incident.
// Valid transitions: OPEN -> INVESTIGATING -> RESOLVED, and OPEN -> FALSE_POSITIVE.
// RESOLVED and FALSE_POSITIVE are terminal.
type IncidentStatus string

const (
	// IncidentStatusOpen is the initial state of a detected incident.
	IncidentStatusOpen IncidentStatus = "OPEN"
	// IncidentStatusInvestigating marks an incident under active review.
	IncidentStatusInvestigating IncidentStatus = "INVESTIGATING"
	// IncidentStatusResolved marks a handled incident (terminal).
	IncidentStatusResolved IncidentStatus = "RESOLVED"
	// IncidentStatusFalsePositive marks a dismissed detection (terminal).
	IncidentStatusFalsePositive IncidentStatus = "FALSE_POSITIVE"
)

// Terminal reports whether s permits no further transitions.
func (s IncidentStatus) Terminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusFalsePositive
}

// SecurityIncident is a deduplicated record of abnormal activity raised by the
// anomaly detector or by manual report. New detections of the same type sharing
// an affected user within the correlation window merge into the existing
// incident instead of creating a duplicate.
type SecurityIncident struct {
	// ID is the unique identifier for the incident.
	ID uint64 `gorm:"primaryKey"`
	// Type is the incident category.
	Type IncidentType `gorm:"type:varchar(30);not null;index:idx_incident_lookup,priority:1"`
	// Severity grades the incident.
	Severity IncidentSeverity `gorm:"type:varchar(10);not null"`
	// Title is a short human-readable summary.
	Title string `gorm:"size:255;not null"`
	// Description is the append-only detection narrative. Merged detections
	// append their description newline-joined; existing text is never rewritten.
	Description string `gorm:"type:text"`
	// Status is the workflow state.
	Status IncidentStatus `gorm:"type:varchar(20);not null;index:idx_incident_lookup,priority:2"`
	// DetectedAt is the instant the first detection was made.
	DetectedAt time.Time `gorm:"not null;index:idx_incident_lookup,priority:3"`
	// AffectedUsers is the comma-separated set of affected user IDs.
	AffectedUsers string `gorm:"size:1024"`
	// Resolution is the free-form resolution text set when the incident is closed.
	Resolution string `gorm:"type:text"`
	// ResolvedBy is the ID of the user who resolved the incident.
	ResolvedBy *uint64
	// ResolvedAt is the instant the incident was resolved.
	ResolvedAt *time.Time
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the row was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the SecurityIncident model.
// This overrides GORM's default pluralized table naming.
func (SecurityIncident) TableName() string {
	return "security_incidents"
}

// AffectedUserIDs parses the serialized affected-user set.
func (i *SecurityIncident) AffectedUserIDs() []uint64 {
	if i.AffectedUsers == "" {
		return nil
	}

	parts := strings.Split(i.AffectedUsers, ",")
	ids := make([]uint64, 0, len(parts))

	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}

		ids = append(ids, id)
	}

	return ids
}

// SetAffectedUserIDs serializes the affected-user set, deduplicating IDs.
func (i *SecurityIncident) SetAffectedUserIDs(ids []uint64) {
	seen := make(map[uint64]bool, len(ids))
	parts := make([]string, 0, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true

		parts = append(parts, strconv.FormatUint(id, 10))
	}

	i.AffectedUsers = strings.Join(parts, ",")
}

// SharesAffectedUser reports whether any of ids is in the incident's affected set.
func (i *SecurityIncident) SharesAffectedUser(ids []uint64) bool {
	existing := make(map[uint64]bool)
	for _, id := range i.AffectedUserIDs() {
		existing[id] = true
	}

	for _, id := range ids {
		if existing[id] {
			return true
		}
	}

	return false
}
