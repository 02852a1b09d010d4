package audit

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamgrid/teamgrid/internal/db/models"
)

// lastCleanupSetting is the settings key recording the last retention run.
const lastCleanupSetting = "audit.last_cleanup"

// CleanupOldLogs deletes audit entries older than the configured retention
// window and returns the number of rows removed. This is the only path that
// ever deletes audit entries.
func (r *Recorder) CleanupOldLogs() (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -r.cfg.RetentionDays)

	result := r.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired audit entries: %w", result.Error)
	}

	r.stampCleanup()

	log.Info().
		Int64("deleted", result.RowsAffected).
		Time("cutoff", cutoff).
		Msg("audit retention cleanup finished")

	return result.RowsAffected, nil
}

// stampCleanup upserts the last-cleanup marker. Failures only cost the
// marker, so they are logged and ignored.
func (r *Recorder) stampCleanup() {
	value := []byte(time.Now().UTC().Format(time.RFC3339))

	var setting models.Setting

	err := r.db.Where("name = ?", lastCleanupSetting).First(&setting).Error
	if err != nil {
		setting = models.Setting{Name: lastCleanupSetting, Value: value}
		if err := r.db.Create(&setting).Error; err != nil {
			log.Error().Err(err).Msg("failed to record audit cleanup timestamp")
		}

		return
	}

	setting.Value = value
	if err := r.db.Save(&setting).Error; err != nil {
		log.Error().Err(err).Msg("failed to record audit cleanup timestamp")
	}
}
