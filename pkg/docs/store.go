package docs

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DocumentStore provides CRUD operations for document records.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// AutoMigrate creates or updates the document tables.
func (s *DocumentStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&DocumentRecord{}); err != nil {
		return fmt.Errorf("auto-migrate documents: %w", err)
	}
	if err := s.db.AutoMigrate(&DocumentVersionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate document_versions: %w", err)
	}
	if err := s.db.AutoMigrate(&ActivityRecord{}); err != nil {
		return fmt.Errorf("auto-migrate document_activities: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle for transaction scoping by callers
// that must apply multi-table updates atomically.
func (s *DocumentStore) DB() *gorm.DB {
	return s.db
}

// WithTx returns a DocumentStore bound to the given transaction handle.
func (s *DocumentStore) WithTx(tx *gorm.DB) *DocumentStore {
	return &DocumentStore{db: tx}
}

// Create inserts a new document record. Version defaults to 1 and status to
// draft when unset.
func (s *DocumentStore) Create(record *DocumentRecord) error {
	if record.Status == "" {
		record.Status = string(StatusDraft)
	}
	if record.CheckoutStatus == "" {
		record.CheckoutStatus = string(CheckoutAvailable)
	}
	if record.Version == 0 {
		record.Version = 1
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create document: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Get retrieves a document by ID. Returns nil, nil if no record exists.
func (s *DocumentStore) Get(id string) (*DocumentRecord, error) {
	var record DocumentRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w: %w", ErrStoreUnavailable, err)
	}
	return &record, nil
}

// ListFilter defines filters for listing documents.
type ListFilter struct {
	Status    string
	Category  string
	CreatedBy string
	// ExpiringBefore selects documents whose expiry_date is set and earlier
	// than the given time. Used by the expiry sweep.
	ExpiringBefore *time.Time
	// ReviewDueBefore selects documents whose next_review_date is set and
	// earlier than the given time. Used by the recall-schedule sweep.
	ReviewDueBefore *time.Time
	// PendingBefore selects documents whose pending_since is set and earlier
	// than the given time. Used for approval overdue notices.
	PendingBefore *time.Time
}

// List returns paginated documents ordered by created_at DESC.
// pageToken is an RFC3339Nano timestamp from a previous page.
func (s *DocumentStore) List(filter ListFilter, pageSize int, pageToken string) ([]DocumentRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.CreatedBy != "" {
			q = q.Where("created_by = ?", filter.CreatedBy)
		}
		if filter.ExpiringBefore != nil {
			q = q.Where("expiry_date IS NOT NULL AND expiry_date < ?", *filter.ExpiringBefore)
		}
		if filter.ReviewDueBefore != nil {
			q = q.Where("next_review_date IS NOT NULL AND next_review_date < ?", *filter.ReviewDueBefore)
		}
		if filter.PendingBefore != nil {
			q = q.Where("pending_since IS NOT NULL AND pending_since < ?", *filter.PendingBefore)
		}
		return q
	}

	var totalSize int64
	if err := apply(s.db.Model(&DocumentRecord{})).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count documents: %w: %w", ErrStoreUnavailable, err)
	}

	query := apply(s.db.Model(&DocumentRecord{})).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []DocumentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list documents: %w: %w", ErrStoreUnavailable, err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// UpdateCAS writes the full record guarded by a compare-and-swap on the version
// the caller read. The write succeeds only if the stored version still equals
// expectedVersion; otherwise ErrStaleWrite is returned and nothing changes.
// The record itself may carry the same or an incremented version.
func (s *DocumentStore) UpdateCAS(record *DocumentRecord, expectedVersion int) error {
	result := s.db.Model(&DocumentRecord{}).
		Where("id = ? AND version = ?", record.ID, expectedVersion).
		Select("*").
		Omit("id", "created_by", "created_at").
		Updates(record)
	if result.Error != nil {
		return fmt.Errorf("update document: %w: %w", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish missing document from version conflict.
		existing, err := s.Get(record.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("document %s not found", record.ID)
		}
		return ErrStaleWrite
	}
	return nil
}
