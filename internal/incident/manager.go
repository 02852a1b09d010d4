// Package incident implements the security incident workflow: deduplicated
// creation of incidents raised by the anomaly detector, the status state
// machine, and the resolution path.
package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/db/models"
)

// DefaultCorrelationWindow is how far back CreateOrMerge looks for an open
// incident of the same type before creating a new one.
const DefaultCorrelationWindow = time.Hour

var (
	// ErrIncidentNotFound is returned when no incident exists with the given ID.
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrInvalidTransition is returned for a status change the state machine
	// does not permit. RESOLVED and FALSE_POSITIVE are terminal.
	ErrInvalidTransition = errors.New("invalid incident status transition")
)

// validTransitions is the incident state machine.
var validTransitions = map[models.IncidentStatus][]models.IncidentStatus{
	models.IncidentStatusOpen: {
		models.IncidentStatusInvestigating,
		models.IncidentStatusResolved,
		models.IncidentStatusFalsePositive,
	},
	models.IncidentStatusInvestigating: {
		models.IncidentStatusResolved,
	},
}

// transitionAllowed reports whether from -> to is a legal status change.
func transitionAllowed(from, to models.IncidentStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// Candidate is a detection the manager turns into a new incident or merges
// into an existing one.
type Candidate struct {
	Type          models.IncidentType
	Severity      models.IncidentSeverity
	Title         string
	Description   string
	AffectedUsers []uint64
}

// Manager deduplicates and persists security incidents.
type Manager struct {
	db       *gorm.DB
	recorder *audit.Recorder
	window   time.Duration
}

// NewManager creates an incident manager. The recorder is used to audit
// incident resolutions; window is the dedup correlation window (zero means
// DefaultCorrelationWindow).
func NewManager(db *gorm.DB, recorder *audit.Recorder, window time.Duration) *Manager {
	if window <= 0 {
		window = DefaultCorrelationWindow
	}

	return &Manager{db: db, recorder: recorder, window: window}
}

// CreateOrMerge records a detection. If an OPEN or INVESTIGATING incident of
// the same type shares at least one affected user and was detected within
// the correlation window, the candidate merges into it: its description is
// appended newline-joined and its affected users unioned, leaving severity
// and status untouched. Otherwise a new OPEN incident is inserted.
//
// The find-then-write runs inside a transaction so two near-simultaneous
// detections cannot both insert.
func (m *Manager) CreateOrMerge(ctx context.Context, candidate Candidate) (*models.SecurityIncident, error) {
	var result *models.SecurityIncident

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		since := time.Now().Add(-m.window)

		var open []models.SecurityIncident

		err := tx.Where("type = ? AND status IN ? AND detected_at > ?",
			candidate.Type,
			[]models.IncidentStatus{models.IncidentStatusOpen, models.IncidentStatusInvestigating},
			since,
		).Order("detected_at DESC").Find(&open).Error
		if err != nil {
			return fmt.Errorf("failed to query open incidents: %w", err)
		}

		for i := range open {
			existing := &open[i]
			if !existing.SharesAffectedUser(candidate.AffectedUsers) {
				continue
			}

			existing.Description = existing.Description + "\n" + candidate.Description
			existing.SetAffectedUserIDs(append(existing.AffectedUserIDs(), candidate.AffectedUsers...))

			if err := tx.Save(existing).Error; err != nil {
				return fmt.Errorf("failed to merge incident: %w", err)
			}

			log.Info().
				Uint64("incident_id", existing.ID).
				Str("type", string(candidate.Type)).
				Msg("detection merged into existing incident")

			result = existing

			return nil
		}

		created := &models.SecurityIncident{
			Type:        candidate.Type,
			Severity:    candidate.Severity,
			Title:       candidate.Title,
			Description: candidate.Description,
			Status:      models.IncidentStatusOpen,
			DetectedAt:  time.Now(),
		}
		created.SetAffectedUserIDs(candidate.AffectedUsers)

		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("failed to create incident: %w", err)
		}

		log.Warn().
			Uint64("incident_id", created.ID).
			Str("type", string(candidate.Type)).
			Str("severity", string(candidate.Severity)).
			Msg("security incident opened")

		result = created

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateStatus moves an incident through the state machine without
// resolution metadata (e.g. OPEN -> INVESTIGATING, OPEN -> FALSE_POSITIVE).
func (m *Manager) UpdateStatus(id uint64, status models.IncidentStatus) (*models.SecurityIncident, error) {
	var inc models.SecurityIncident
	if err := m.db.First(&inc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}

		return nil, fmt.Errorf("failed to load incident: %w", err)
	}

	if !transitionAllowed(inc.Status, status) {
		return nil, ErrInvalidTransition
	}

	inc.Status = status

	if err := m.db.Save(&inc).Error; err != nil {
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}

	return &inc, nil
}

// Resolve transitions an incident to RESOLVED, stamping the resolver and
// timestamp. The resolution itself is recorded as an audit event.
func (m *Manager) Resolve(id uint64, resolution string, resolvedBy uint64) (*models.SecurityIncident, error) {
	var inc models.SecurityIncident
	if err := m.db.First(&inc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}

		return nil, fmt.Errorf("failed to load incident: %w", err)
	}

	if !transitionAllowed(inc.Status, models.IncidentStatusResolved) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	inc.Status = models.IncidentStatusResolved
	inc.Resolution = resolution
	inc.ResolvedBy = &resolvedBy
	inc.ResolvedAt = &now

	if err := m.db.Save(&inc).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve incident: %w", err)
	}

	if m.recorder != nil {
		resolver := resolvedBy
		m.recorder.Record(audit.Event{
			UserID:       &resolver,
			Action:       models.ActionIncidentResolved,
			ResourceType: "security_incident",
			ResourceID:   fmt.Sprintf("%d", inc.ID),
			Details:      resolution,
			Status:       models.AuditStatusSuccess,
		})
	}

	return &inc, nil
}

// Filter narrows an incident listing. Zero values mean "any".
type Filter struct {
	Type     models.IncidentType
	Status   models.IncidentStatus
	Severity models.IncidentSeverity
}

// List returns a page of incidents matching the filter, newest detection
// first, plus the total count.
func (m *Manager) List(filter Filter, page, limit int) ([]models.SecurityIncident, int64, error) {
	if page < 1 {
		page = 1
	}

	if limit < 1 || limit > audit.MaxPageSize {
		limit = audit.DefaultPageSize
	}

	tx := m.db.Model(&models.SecurityIncident{})

	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}

	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}

	if filter.Severity != "" {
		tx = tx.Where("severity = ?", filter.Severity)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	var incidents []models.SecurityIncident

	err := tx.Order("detected_at DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&incidents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query incidents: %w", err)
	}

	return incidents, total, nil
}
