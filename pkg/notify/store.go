package notify

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/docuvault/docuvault/pkg/docs"
)

// NotificationStore provides operations for document notifications.
type NotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// AutoMigrate creates or updates the notifications table.
func (s *NotificationStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&NotificationRecord{}); err != nil {
		return fmt.Errorf("auto-migrate document_notifications: %w", err)
	}
	return nil
}

// Create inserts a notification. Inserts conflicting on the
// (document_id, type, dedupe_key) unique index are silently dropped, which is
// what makes repeated scans and replayed transitions idempotent.
func (s *NotificationStore) Create(record *NotificationRecord) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "type"}, {Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("create notification: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return nil
}

// ListForRecipient returns paginated notifications addressed to the given
// user, newest first. unreadOnly restricts to unread entries.
func (s *NotificationStore) ListForRecipient(userID string, unreadOnly bool, pageSize int, pageToken string) ([]NotificationRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	// Recipients are stored as a JSON array of quoted ids.
	match := fmt.Sprintf(`%%"%s"%%`, userID)

	apply := func(q *gorm.DB) *gorm.DB {
		q = q.Where("recipients LIKE ?", match)
		if unreadOnly {
			q = q.Where("read = ?", false)
		}
		return q
	}

	var totalSize int64
	if err := apply(s.db.Model(&NotificationRecord{})).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count notifications: %w: %w", docs.ErrStoreUnavailable, err)
	}

	query := apply(s.db.Model(&NotificationRecord{})).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []NotificationRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list notifications: %w: %w", docs.ErrStoreUnavailable, err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// MarkRead sets the read flag on a notification.
func (s *NotificationStore) MarkRead(id string) error {
	result := s.db.Model(&NotificationRecord{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("mark notification read: %w: %w", docs.ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %s not found", id)
	}
	return nil
}

// ClearForRecipient deletes all notifications addressed to the given user.
// Returns the number of deleted records.
func (s *NotificationStore) ClearForRecipient(userID string) (int64, error) {
	match := fmt.Sprintf(`%%"%s"%%`, userID)
	result := s.db.Where("recipients LIKE ?", match).Delete(&NotificationRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear notifications: %w: %w", docs.ErrStoreUnavailable, result.Error)
	}
	return result.RowsAffected, nil
}
