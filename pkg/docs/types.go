package docs

import "fmt"

// Status represents document lifecycle states.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingReview   Status = "pending_review"
	StatusInReview        Status = "in_review"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPublished       Status = "published"
	StatusActive          Status = "active"
	StatusRejected        Status = "rejected"
	StatusArchived        Status = "archived"
	StatusExpired         Status = "expired"
)

// AllStatuses lists every legal status value. Status strings outside this set
// are rejected at the deserialization boundary, not inside business logic.
var AllStatuses = []Status{
	StatusDraft, StatusPendingReview, StatusInReview, StatusPendingApproval,
	StatusApproved, StatusPublished, StatusActive, StatusRejected,
	StatusArchived, StatusExpired,
}

// ParseStatus validates a raw status string against the closed set.
func ParseStatus(s string) (Status, error) {
	for _, v := range AllStatuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown document status %q", s)
}

// IsPending returns true for the statuses that set pending_since.
func (s Status) IsPending() bool {
	return s == StatusPendingReview || s == StatusPendingApproval
}

// CheckoutStatus represents the cooperative editing lock state of a document.
type CheckoutStatus string

const (
	CheckoutAvailable  CheckoutStatus = "available"
	CheckoutCheckedOut CheckoutStatus = "checked_out"
	CheckoutLocked     CheckoutStatus = "locked"
)

// Category represents the document category.
type Category string

const (
	CategorySOP          Category = "sop"
	CategoryPolicy       Category = "policy"
	CategoryForm         Category = "form"
	CategoryCertificate  Category = "certificate"
	CategoryAuditReport  Category = "audit_report"
	CategoryHACCPPlan    Category = "haccp_plan"
	CategoryTraining     Category = "training_material"
	CategorySupplierDocs Category = "supplier_documentation"
	CategoryRiskAssess   Category = "risk_assessment"
	CategoryOther        Category = "other"
)

// AllCategories lists the closed category set.
var AllCategories = []Category{
	CategorySOP, CategoryPolicy, CategoryForm, CategoryCertificate,
	CategoryAuditReport, CategoryHACCPPlan, CategoryTraining,
	CategorySupplierDocs, CategoryRiskAssess, CategoryOther,
}

// ParseCategory validates a raw category string against the closed set.
func ParseCategory(s string) (Category, error) {
	for _, v := range AllCategories {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown document category %q", s)
}

// Document is the API-facing document type.
type Document struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Category        Category       `json:"category"`
	FileName        string         `json:"fileName,omitempty"`
	MimeType        string         `json:"mimeType,omitempty"`
	SizeBytes       int64          `json:"sizeBytes,omitempty"`
	StoragePath     string         `json:"storagePath,omitempty"`
	Status          Status         `json:"status"`
	Version         int            `json:"version"`
	PendingSince    string         `json:"pendingSince,omitempty"` // RFC3339
	LastAction      string         `json:"lastAction,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	ExpiryDate      string         `json:"expiryDate,omitempty"`
	LastReviewDate  string         `json:"lastReviewDate,omitempty"`
	NextReviewDate  string         `json:"nextReviewDate,omitempty"`
	CheckoutStatus  CheckoutStatus `json:"checkoutStatus"`
	CheckoutBy      string         `json:"checkoutBy,omitempty"`
	CheckoutByName  string         `json:"checkoutByName,omitempty"`
	CheckoutAt      string         `json:"checkoutAt,omitempty"`
	CreatedBy       string         `json:"createdBy"`
	Approvers       []string       `json:"approvers,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt,omitempty"`
}

// DocumentList is a paginated list of documents.
type DocumentList struct {
	Documents     []Document `json:"documents"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
	TotalSize     int        `json:"totalSize"`
}

// DocumentVersion is the API-facing version log entry.
type DocumentVersion struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Version    int    `json:"version"`
	Comment    string `json:"comment,omitempty"`
	CreatedBy  string `json:"createdBy"`
	FileName   string `json:"fileName,omitempty"`
	SizeBytes  int64  `json:"sizeBytes,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// Activity is the API-facing audit log entry.
type Activity struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"documentId"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Outcome    string         `json:"outcome"`
	Detail     string         `json:"detail,omitempty"`
	OldValue   map[string]any `json:"oldValue,omitempty"`
	NewValue   map[string]any `json:"newValue,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

// ActivityList is a paginated list of audit entries.
type ActivityList struct {
	Activities    []Activity `json:"activities"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
	TotalSize     int        `json:"totalSize"`
}
