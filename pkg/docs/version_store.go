package docs

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// VersionStore provides append-only operations for the document version log.
type VersionStore struct {
	db *gorm.DB
}

// NewVersionStore creates a new VersionStore.
func NewVersionStore(db *gorm.DB) *VersionStore {
	return &VersionStore{db: db}
}

// WithTx returns a VersionStore bound to the given transaction handle.
func (s *VersionStore) WithTx(tx *gorm.DB) *VersionStore {
	return &VersionStore{db: tx}
}

// Append creates a new immutable version record.
func (s *VersionStore) Append(record *DocumentVersionRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("append document version: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// ListByDocument returns paginated version records for a document, newest
// first. pageToken is an RFC3339Nano timestamp from a previous page.
func (s *VersionStore) ListByDocument(documentID string, pageSize int, pageToken string) ([]DocumentVersionRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := s.db.Model(&DocumentVersionRecord{}).Where("document_id = ?", documentID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count document versions: %w: %w", ErrStoreUnavailable, err)
	}

	query := s.db.Where("document_id = ?", documentID).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []DocumentVersionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list document versions: %w: %w", ErrStoreUnavailable, err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}
