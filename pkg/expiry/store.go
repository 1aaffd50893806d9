package expiry

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/docuvault/docuvault/pkg/docs"
)

// SweepStore records sweep executions.
type SweepStore struct {
	db *gorm.DB
}

// NewSweepStore creates a new SweepStore.
func NewSweepStore(db *gorm.DB) *SweepStore {
	return &SweepStore{db: db}
}

// AutoMigrate creates or updates the sweep_runs table.
func (s *SweepStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&SweepRunRecord{}); err != nil {
		return fmt.Errorf("auto-migrate sweep_runs: %w", err)
	}
	return nil
}

// Record inserts a completed sweep run.
func (s *SweepStore) Record(record *SweepRunRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("record sweep run: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return nil
}

// ListRecent returns the most recent runs of the given kind, newest first.
func (s *SweepStore) ListRecent(kind SweepKind, limit int) ([]SweepRunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []SweepRunRecord
	q := s.db.Order("started_at DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list sweep runs: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return records, nil
}

// DeleteOlderThan removes run records started before the cutoff time.
func (s *SweepStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("started_at < ?", cutoff).Delete(&SweepRunRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old sweep runs: %w: %w", docs.ErrStoreUnavailable, result.Error)
	}
	return result.RowsAffected, nil
}
