package incident

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.SecurityIncident{}, &models.AuditLog{}, &models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func newTestManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)

	return NewManager(db, nil, 0), db
}

func bruteForceCandidate(users ...uint64) Candidate {
	return Candidate{
		Type:          models.IncidentTypeBruteForce,
		Severity:      models.IncidentSeverityHigh,
		Title:         "Repeated failed logins",
		Description:   "5 failed login attempts within 15m",
		AffectedUsers: users,
	}
}

func TestCreateOrMergeCreatesOpenIncident(t *testing.T) {
	manager, _ := newTestManager(t)

	inc, err := manager.CreateOrMerge(context.Background(), bruteForceCandidate(1))
	require.NoError(t, err)

	assert.NotZero(t, inc.ID)
	assert.Equal(t, models.IncidentStatusOpen, inc.Status)
	assert.Equal(t, models.IncidentSeverityHigh, inc.Severity)
	assert.Equal(t, []uint64{1}, inc.AffectedUserIDs())
	assert.False(t, inc.DetectedAt.IsZero())
}

func TestCreateOrMergeMergesSharedUser(t *testing.T) {
	manager, db := newTestManager(t)

	first, err := manager.CreateOrMerge(context.Background(), bruteForceCandidate(1))
	require.NoError(t, err)

	second := bruteForceCandidate(1, 2)
	second.Description = "3 more failed attempts"

	merged, err := manager.CreateOrMerge(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.ElementsMatch(t, []uint64{1, 2}, merged.AffectedUserIDs())
	assert.Contains(t, merged.Description, "5 failed login attempts within 15m")
	assert.Contains(t, merged.Description, "3 more failed attempts")

	var count int64
	require.NoError(t, db.Model(&models.SecurityIncident{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrMergeSeparatesByTypeAndUser(t *testing.T) {
	manager, db := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateOrMerge(ctx, bruteForceCandidate(1))
	require.NoError(t, err)

	// different type, same user: new incident
	_, err = manager.CreateOrMerge(ctx, Candidate{
		Type:          models.IncidentTypeSuspiciousActivity,
		Severity:      models.IncidentSeverityMedium,
		Title:         "Excessive sensitive data access",
		AffectedUsers: []uint64{1},
	})
	require.NoError(t, err)

	// same type, disjoint users: new incident
	_, err = manager.CreateOrMerge(ctx, bruteForceCandidate(9))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.SecurityIncident{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestCreateOrMergeIgnoresOldAndClosedIncidents(t *testing.T) {
	manager, db := newTestManager(t)
	ctx := context.Background()

	// an open incident outside the correlation window
	stale := models.SecurityIncident{
		Type:       models.IncidentTypeBruteForce,
		Severity:   models.IncidentSeverityHigh,
		Title:      "stale",
		Status:     models.IncidentStatusOpen,
		DetectedAt: time.Now().Add(-2 * DefaultCorrelationWindow),
	}
	stale.SetAffectedUserIDs([]uint64{1})
	require.NoError(t, db.Create(&stale).Error)

	// a recent but resolved incident
	closed := models.SecurityIncident{
		Type:       models.IncidentTypeBruteForce,
		Severity:   models.IncidentSeverityHigh,
		Title:      "closed",
		Status:     models.IncidentStatusResolved,
		DetectedAt: time.Now(),
	}
	closed.SetAffectedUserIDs([]uint64{1})
	require.NoError(t, db.Create(&closed).Error)

	inc, err := manager.CreateOrMerge(ctx, bruteForceCandidate(1))
	require.NoError(t, err)

	assert.NotEqual(t, stale.ID, inc.ID)
	assert.NotEqual(t, closed.ID, inc.ID)
}

func TestUpdateStatus(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	testCases := []struct {
		name          string
		from          models.IncidentStatus
		to            models.IncidentStatus
		expectedError error
	}{
		{"open to investigating", models.IncidentStatusOpen, models.IncidentStatusInvestigating, nil},
		{"open to false positive", models.IncidentStatusOpen, models.IncidentStatusFalsePositive, nil},
		{"open to resolved", models.IncidentStatusOpen, models.IncidentStatusResolved, nil},
		{"investigating to resolved", models.IncidentStatusInvestigating, models.IncidentStatusResolved, nil},
		{"investigating back to open", models.IncidentStatusInvestigating, models.IncidentStatusOpen, ErrInvalidTransition},
		{"investigating to false positive", models.IncidentStatusInvestigating, models.IncidentStatusFalsePositive, ErrInvalidTransition},
		{"resolved is terminal", models.IncidentStatusResolved, models.IncidentStatusInvestigating, ErrInvalidTransition},
		{"false positive is terminal", models.IncidentStatusFalsePositive, models.IncidentStatusResolved, ErrInvalidTransition},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inc, err := manager.CreateOrMerge(ctx, bruteForceCandidate(100))
			require.NoError(t, err)

			if tc.from != models.IncidentStatusOpen {
				require.NoError(t, manager.db.Model(inc).Update("status", tc.from).Error)
			}

			updated, err := manager.UpdateStatus(inc.ID, tc.to)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
			}

			// keep iterations independent
			require.NoError(t, manager.db.Delete(inc).Error)
		})
	}

	t.Run("missing incident", func(t *testing.T) {
		_, err := manager.UpdateStatus(99999, models.IncidentStatusInvestigating)
		require.ErrorIs(t, err, ErrIncidentNotFound)
	})
}

func TestResolve(t *testing.T) {
	db := setupTestDB(t)
	recorder := audit.NewRecorder(db, audit.Config{})
	recorder.Start()

	manager := NewManager(db, recorder, 0)

	inc, err := manager.CreateOrMerge(context.Background(), bruteForceCandidate(4))
	require.NoError(t, err)

	resolved, err := manager.Resolve(inc.ID, "password reset enforced", 42)
	require.NoError(t, err)

	assert.Equal(t, models.IncidentStatusResolved, resolved.Status)
	assert.Equal(t, "password reset enforced", resolved.Resolution)
	require.NotNil(t, resolved.ResolvedBy)
	assert.EqualValues(t, 42, *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	// the resolution lands in the audit trail
	recorder.Close()

	var entry models.AuditLog
	require.NoError(t, db.Where("action = ?", models.ActionIncidentResolved).First(&entry).Error)
	assert.Equal(t, "security_incident", entry.ResourceType)
	assert.Equal(t, "password reset enforced", entry.Details)
	require.NotNil(t, entry.UserID)
	assert.EqualValues(t, 42, *entry.UserID)

	t.Run("resolving twice fails", func(t *testing.T) {
		_, err := manager.Resolve(inc.ID, "again", 42)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("missing incident", func(t *testing.T) {
		_, err := manager.Resolve(99999, "nothing", 42)
		require.ErrorIs(t, err, ErrIncidentNotFound)
	})
}

func TestList(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateOrMerge(ctx, bruteForceCandidate(1))
	require.NoError(t, err)

	_, err = manager.CreateOrMerge(ctx, Candidate{
		Type:          models.IncidentTypeSuspiciousActivity,
		Severity:      models.IncidentSeverityMedium,
		Title:         "Access from multiple origins",
		AffectedUsers: []uint64{2},
	})
	require.NoError(t, err)

	t.Run("all", func(t *testing.T) {
		incidents, total, err := manager.List(Filter{}, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, incidents, 2)
	})

	t.Run("filter by type", func(t *testing.T) {
		incidents, total, err := manager.List(Filter{Type: models.IncidentTypeBruteForce}, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, incidents, 1)
		assert.Equal(t, models.IncidentTypeBruteForce, incidents[0].Type)
	})

	t.Run("filter by severity and status", func(t *testing.T) {
		incidents, total, err := manager.List(Filter{
			Severity: models.IncidentSeverityMedium,
			Status:   models.IncidentStatusOpen,
		}, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, incidents, 1)
		assert.Equal(t, models.IncidentSeverityMedium, incidents[0].Severity)
	})

	t.Run("no match", func(t *testing.T) {
		incidents, total, err := manager.List(Filter{Type: models.IncidentTypeDataLeak}, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, incidents)
	})
}
