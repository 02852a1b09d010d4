package audit

import (
	"fmt"
	"time"

	"github.com/teamgrid/teamgrid/internal/db/models"
)

const (
	// DefaultPageSize for audit log pagination.
	DefaultPageSize = 50
	// MaxPageSize caps a single audit log page.
	MaxPageSize = 200
)

// Filter narrows an audit log query. Zero values mean "any".
type Filter struct {
	UserID       *uint64
	Action       string
	ResourceType string
	Status       models.AuditStatus
	From         *time.Time
	To           *time.Time
}

// ActionCount is a per-action tally for the activity summary.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// GetLogs returns a page of audit entries matching the filter, newest first
// (creation instant, ties broken by insertion order), plus the total count.
func (r *Recorder) GetLogs(filter Filter, page, limit int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}

	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	tx := r.db.Model(&models.AuditLog{})

	if filter.UserID != nil {
		tx = tx.Where("user_id = ?", *filter.UserID)
	}

	if filter.Action != "" {
		tx = tx.Where("action = ?", filter.Action)
	}

	if filter.ResourceType != "" {
		tx = tx.Where("resource_type = ?", filter.ResourceType)
	}

	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}

	if filter.From != nil {
		tx = tx.Where("created_at >= ?", *filter.From)
	}

	if filter.To != nil {
		tx = tx.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	var entries []models.AuditLog

	err := tx.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}

	return entries, total, nil
}

// GetUserActivity returns a user's recent audit entries over the lookback
// window plus a per-action count summary.
func (r *Recorder) GetUserActivity(userID uint64, days int) ([]models.AuditLog, []ActionCount, error) {
	if days < 1 {
		days = 7
	}

	since := time.Now().AddDate(0, 0, -days)

	var entries []models.AuditLog

	err := r.db.Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC, id DESC").
		Limit(MaxPageSize).
		Find(&entries).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query user activity: %w", err)
	}

	counts := make([]ActionCount, 0)

	err = r.db.Model(&models.AuditLog{}).
		Select("action, COUNT(*) as count").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("action").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to summarize user activity: %w", err)
	}

	return entries, counts, nil
}
