package notify

import (
	"time"

	"github.com/docuvault/docuvault/pkg/docs"
)

// Type classifies a document notification.
type Type string

const (
	TypeApprovalRequest  Type = "approval_request"
	TypeApprovalOverdue  Type = "approval_overdue"
	TypeExpiryReminder   Type = "expiry_reminder"
	TypeApprovalComplete Type = "approval_complete"
	TypeApprovalRejected Type = "approval_rejected"
)

// NotificationRecord is the GORM model for a document notification. The
// (document_id, type, dedupe_key) unique index makes emission idempotent:
// re-running a scan or replaying a transition cannot create duplicates.
type NotificationRecord struct {
	ID            string               `gorm:"primaryKey;column:id;type:varchar(36)"`
	Type          string               `gorm:"column:type;uniqueIndex:idx_notif_dedupe,priority:2;not null"`
	DocumentID    string               `gorm:"column:document_id;uniqueIndex:idx_notif_dedupe,priority:1;index:idx_notif_document;not null"`
	DocumentTitle string               `gorm:"column:document_title"`
	Message       string               `gorm:"column:message;not null"`
	Recipients    docs.JSONStringSlice `gorm:"column:recipients;type:text"`
	Read          bool                 `gorm:"column:read;not null;default:false"`
	DedupeKey     string               `gorm:"column:dedupe_key;uniqueIndex:idx_notif_dedupe,priority:3;not null"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (NotificationRecord) TableName() string { return "document_notifications" }

// Notification is the API-facing notification type.
type Notification struct {
	ID            string   `json:"id"`
	Type          Type     `json:"type"`
	DocumentID    string   `json:"documentId"`
	DocumentTitle string   `json:"documentTitle,omitempty"`
	Message       string   `json:"message"`
	Recipients    []string `json:"recipients,omitempty"`
	Read          bool     `json:"read"`
	CreatedAt     string   `json:"createdAt"`
}

// NotificationList is a paginated list of notifications.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
	TotalSize     int            `json:"totalSize"`
}
