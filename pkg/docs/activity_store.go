package docs

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ActivityStore provides append-only operations for the document audit log.
type ActivityStore struct {
	db *gorm.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// WithTx returns an ActivityStore bound to the given transaction handle.
func (s *ActivityStore) WithTx(tx *gorm.DB) *ActivityStore {
	return &ActivityStore{db: tx}
}

// Append creates a new immutable activity record.
func (s *ActivityStore) Append(record *ActivityRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("append document activity: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// ListByDocument returns paginated activity records for a document, newest
// first. pageToken is an RFC3339Nano timestamp from a previous page.
func (s *ActivityStore) ListByDocument(documentID string, pageSize int, pageToken string) ([]ActivityRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := s.db.Model(&ActivityRecord{}).Where("document_id = ?", documentID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count document activities: %w: %w", ErrStoreUnavailable, err)
	}

	query := s.db.Where("document_id = ?", documentID).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []ActivityRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list document activities: %w: %w", ErrStoreUnavailable, err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// DeleteOlderThan deletes activity records created before the cutoff.
// Returns the number of deleted records. Used by the retention sweep.
func (s *ActivityStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&ActivityRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old document activities: %w: %w", ErrStoreUnavailable, result.Error)
	}
	return result.RowsAffected, nil
}
