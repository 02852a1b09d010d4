// Package anomaly evaluates persisted audit entries against a small set of
// stateless, windowed-count heuristics and escalates threshold breaches to
// the incident manager.
//
// Detection runs after each recorded event, off the request path. A failed
// scan is logged and forgotten: it must never block recording or subsequent
// requests. Deduplication of repeated detections is the incident manager's
// job, so the rules themselves stay stateless.
package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/incident"
)

// Default thresholds and windows. These are deployment configuration, not
// tuned truths; override them via the Security section of the config file.
const (
	DefaultFailedLoginThreshold = 5
	DefaultFailedLoginWindow    = 15 * time.Minute

	DefaultSensitiveAccessThreshold = 50
	DefaultSensitiveAccessWindow    = time.Hour

	DefaultDistinctIPThreshold = 5
	DefaultDistinctIPWindow    = 30 * time.Minute
)

// Config holds the detection thresholds and rolling windows.
type Config struct {
	FailedLoginThreshold int
	FailedLoginWindow    time.Duration

	SensitiveAccessThreshold int
	SensitiveAccessWindow    time.Duration

	DistinctIPThreshold int
	DistinctIPWindow    time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.FailedLoginThreshold <= 0 {
		c.FailedLoginThreshold = DefaultFailedLoginThreshold
	}

	if c.FailedLoginWindow <= 0 {
		c.FailedLoginWindow = DefaultFailedLoginWindow
	}

	if c.SensitiveAccessThreshold <= 0 {
		c.SensitiveAccessThreshold = DefaultSensitiveAccessThreshold
	}

	if c.SensitiveAccessWindow <= 0 {
		c.SensitiveAccessWindow = DefaultSensitiveAccessWindow
	}

	if c.DistinctIPThreshold <= 0 {
		c.DistinctIPThreshold = DefaultDistinctIPThreshold
	}

	if c.DistinctIPWindow <= 0 {
		c.DistinctIPWindow = DefaultDistinctIPWindow
	}

	return c
}

// Detector runs the anomaly rules against the audit log.
type Detector struct {
	db        *gorm.DB
	incidents *incident.Manager
	cfg       Config
}

// NewDetector creates a detector reading the audit log through db and
// raising incidents through the manager.
func NewDetector(db *gorm.DB, incidents *incident.Manager, cfg Config) *Detector {
	return &Detector{db: db, incidents: incidents, cfg: cfg.withDefaults()}
}

// Scan evaluates the three rules for the given persisted entry. Each rule
// issues its own count query; rule failures are logged and swallowed.
func (d *Detector) Scan(ctx context.Context, entry models.AuditLog) {
	if entry.UserID == nil {
		return
	}

	if entry.Action == models.ActionLoginFailed {
		d.checkBruteForce(ctx, entry)
	}

	if entry.Action == models.ActionSensitiveAccess {
		d.checkSensitiveAccess(ctx, entry)
	}

	d.checkMultiOrigin(ctx, entry)
}

// checkBruteForce raises a HIGH brute-force incident when the actor's failed
// logins within the window reach the threshold.
func (d *Detector) checkBruteForce(ctx context.Context, entry models.AuditLog) {
	count, err := d.countUserActions(ctx, *entry.UserID, models.ActionLoginFailed, d.cfg.FailedLoginWindow)
	if err != nil {
		log.Error().Err(err).Msg("brute-force scan failed")
		return
	}

	if count < int64(d.cfg.FailedLoginThreshold) {
		return
	}

	d.raise(ctx, incident.Candidate{
		Type:     models.IncidentTypeBruteForce,
		Severity: models.IncidentSeverityHigh,
		Title:    fmt.Sprintf("Repeated failed logins for user %d", *entry.UserID),
		Description: fmt.Sprintf("%d failed login attempts within %s from %s",
			count, d.cfg.FailedLoginWindow, entry.IPAddress),
		AffectedUsers: []uint64{*entry.UserID},
	})
}

// checkSensitiveAccess raises a MEDIUM suspicious-activity incident when the
// actor's sensitive-data reads within the window reach the threshold.
func (d *Detector) checkSensitiveAccess(ctx context.Context, entry models.AuditLog) {
	count, err := d.countUserActions(ctx, *entry.UserID, models.ActionSensitiveAccess, d.cfg.SensitiveAccessWindow)
	if err != nil {
		log.Error().Err(err).Msg("sensitive-access scan failed")
		return
	}

	if count < int64(d.cfg.SensitiveAccessThreshold) {
		return
	}

	d.raise(ctx, incident.Candidate{
		Type:     models.IncidentTypeSuspiciousActivity,
		Severity: models.IncidentSeverityMedium,
		Title:    fmt.Sprintf("Excessive sensitive data access by user %d", *entry.UserID),
		Description: fmt.Sprintf("%d sensitive data accesses within %s",
			count, d.cfg.SensitiveAccessWindow),
		AffectedUsers: []uint64{*entry.UserID},
	})
}

// checkMultiOrigin raises a MEDIUM suspicious-activity incident when the
// actor used too many distinct origin addresses within the window.
func (d *Detector) checkMultiOrigin(ctx context.Context, entry models.AuditLog) {
	since := time.Now().Add(-d.cfg.DistinctIPWindow)

	var count int64

	err := d.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("user_id = ? AND created_at > ? AND ip_address <> ''", *entry.UserID, since).
		Distinct("ip_address").
		Count(&count).Error
	if err != nil {
		log.Error().Err(err).Msg("multi-origin scan failed")
		return
	}

	if count < int64(d.cfg.DistinctIPThreshold) {
		return
	}

	d.raise(ctx, incident.Candidate{
		Type:     models.IncidentTypeSuspiciousActivity,
		Severity: models.IncidentSeverityMedium,
		Title:    fmt.Sprintf("Access from multiple origins by user %d", *entry.UserID),
		Description: fmt.Sprintf("%d distinct origin addresses within %s",
			count, d.cfg.DistinctIPWindow),
		AffectedUsers: []uint64{*entry.UserID},
	})
}

// countUserActions counts a user's entries for an action within the trailing window.
func (d *Detector) countUserActions(ctx context.Context, userID uint64, action string, window time.Duration) (int64, error) {
	since := time.Now().Add(-window)

	var count int64

	err := d.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("user_id = ? AND action = ? AND created_at > ?", userID, action, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s events: %w", action, err)
	}

	return count, nil
}

// raise hands a candidate to the incident manager; create-or-merge failures
// are logged and swallowed.
func (d *Detector) raise(ctx context.Context, candidate incident.Candidate) {
	if _, err := d.incidents.CreateOrMerge(ctx, candidate); err != nil {
		log.Error().Err(err).Str("type", string(candidate.Type)).Msg("failed to raise incident")
	}
}
