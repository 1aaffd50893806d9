package docs

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONAny is a custom GORM type for map[string]any stored as JSON.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// DocumentRecord is the GORM model for a controlled document. Documents are
// never physically deleted; archival is a status transition retained for audit.
type DocumentRecord struct {
	ID              string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	Title           string          `gorm:"column:title;not null"`
	Description     string          `gorm:"column:description"`
	Category        string          `gorm:"column:category;index:idx_doc_category;not null"`
	FileName        string          `gorm:"column:file_name"`
	MimeType        string          `gorm:"column:mime_type"`
	SizeBytes       int64           `gorm:"column:size_bytes"`
	StoragePath     string          `gorm:"column:storage_path"`
	Status          string          `gorm:"column:status;index:idx_doc_status;not null;default:draft"`
	Version         int             `gorm:"column:version;not null;default:1"`
	PendingSince    *time.Time      `gorm:"column:pending_since"`
	LastAction      string          `gorm:"column:last_action"`
	RejectionReason string          `gorm:"column:rejection_reason"`
	ExpiryDate      *time.Time      `gorm:"column:expiry_date;index:idx_doc_expiry"`
	LastReviewDate  *time.Time      `gorm:"column:last_review_date"`
	NextReviewDate  *time.Time      `gorm:"column:next_review_date"`
	CheckoutStatus  string          `gorm:"column:checkout_status;not null;default:available"`
	CheckoutBy      string          `gorm:"column:checkout_by"`
	CheckoutByName  string          `gorm:"column:checkout_by_name"`
	CheckoutAt      *time.Time      `gorm:"column:checkout_at"`
	CreatedBy       string          `gorm:"column:created_by;not null"`
	Approvers       JSONStringSlice `gorm:"column:approvers;type:text"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (DocumentRecord) TableName() string { return "documents" }

// DocumentVersionRecord is an immutable entry in the per-document version log.
// A new entry is appended on every accepted check-in.
type DocumentVersionRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	DocumentID string    `gorm:"column:document_id;index:idx_version_document;not null"`
	Version    int       `gorm:"column:version;not null"`
	Comment    string    `gorm:"column:comment"`
	CreatedBy  string    `gorm:"column:created_by;not null"`
	FileName   string    `gorm:"column:file_name"`
	SizeBytes  int64     `gorm:"column:size_bytes"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (DocumentVersionRecord) TableName() string { return "document_versions" }

// ActivityRecord is an immutable document audit log entry.
type ActivityRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	DocumentID string    `gorm:"column:document_id;index:idx_activity_doc_time,priority:1;not null"`
	Action     string    `gorm:"column:action;not null"`
	Actor      string    `gorm:"column:actor;index:idx_activity_actor;not null"`
	Outcome    string    `gorm:"column:outcome;not null"` // success, failure, denied
	Detail     string    `gorm:"column:detail"`
	OldValue   JSONAny   `gorm:"column:old_value;type:text"`
	NewValue   JSONAny   `gorm:"column:new_value;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_activity_doc_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ActivityRecord) TableName() string { return "document_activities" }
