package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault/pkg/docs"
)

// Emitter derives notification records from document state changes. Derivation
// itself is pure; persistence goes through the store's idempotent create.
type Emitter struct {
	store *NotificationStore
}

// NewEmitter creates an Emitter over the given store.
func NewEmitter(store *NotificationStore) *Emitter {
	return &Emitter{store: store}
}

// OnTransition persists the notifications implied by a status change.
// Implements docs.NotificationSink.
func (e *Emitter) OnTransition(ctx context.Context, doc docs.DocumentRecord, previous docs.Status) error {
	for _, rec := range DeriveFromTransition(doc, previous) {
		if err := e.store.Create(&rec); err != nil {
			return err
		}
	}
	return nil
}

// EmitExpiryReminder persists an expiry reminder deduped per calendar day.
func (e *Emitter) EmitExpiryReminder(ctx context.Context, doc docs.DocumentRecord, now time.Time) error {
	rec := deriveExpiryReminder(doc, now)
	return e.store.Create(&rec)
}

// EmitReviewReminder persists a review-due reminder deduped per calendar day.
func (e *Emitter) EmitReviewReminder(ctx context.Context, doc docs.DocumentRecord, now time.Time) error {
	var due string
	if doc.NextReviewDate != nil {
		due = doc.NextReviewDate.Format("2006-01-02")
	}
	rec := NotificationRecord{
		ID:            uuid.New().String(),
		Type:          string(TypeExpiryReminder),
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Message:       fmt.Sprintf("%q is due for review on %s", doc.Title, due),
		Recipients:    docs.JSONStringSlice{doc.CreatedBy},
		DedupeKey:     "review-" + now.UTC().Format("2006-01-02"),
	}
	return e.store.Create(&rec)
}

// EmitApprovalOverdue persists an overdue notice for a stale pending document,
// deduped per calendar day.
func (e *Emitter) EmitApprovalOverdue(ctx context.Context, doc docs.DocumentRecord, now time.Time) error {
	rec := NotificationRecord{
		ID:            uuid.New().String(),
		Type:          string(TypeApprovalOverdue),
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Message:       fmt.Sprintf("Approval of %q has been pending since %s", doc.Title, doc.PendingSince.Format("2006-01-02")),
		Recipients:    doc.Approvers,
		DedupeKey:     "overdue-" + now.UTC().Format("2006-01-02"),
	}
	return e.store.Create(&rec)
}

// EmitApprovalRequest persists an approval request addressed to the given
// approvers, deduped per workflow step and document version. Used when a
// workflow advances to its next step without a status change.
func (e *Emitter) EmitApprovalRequest(ctx context.Context, doc docs.DocumentRecord, stepIndex int, approvers []string) error {
	rec := NotificationRecord{
		ID:            uuid.New().String(),
		Type:          string(TypeApprovalRequest),
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Message:       fmt.Sprintf("%q (v%d) is awaiting your approval", doc.Title, doc.Version),
		Recipients:    docs.JSONStringSlice(approvers),
		DedupeKey:     fmt.Sprintf("step-%d-v%d", stepIndex, doc.Version),
	}
	return e.store.Create(&rec)
}

// DeriveFromTransition returns the notifications implied by moving doc from
// previous to its current status. Pure: no store access, no clock reads.
func DeriveFromTransition(doc docs.DocumentRecord, previous docs.Status) []NotificationRecord {
	current := docs.Status(doc.Status)
	var out []NotificationRecord

	switch {
	case current.IsPending() && len(doc.Approvers) > 0:
		out = append(out, NotificationRecord{
			ID:            uuid.New().String(),
			Type:          string(TypeApprovalRequest),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Message:       fmt.Sprintf("%q (v%d) is awaiting your approval", doc.Title, doc.Version),
			Recipients:    doc.Approvers,
			DedupeKey:     fmt.Sprintf("%s-v%d", current, doc.Version),
		})

	case current == docs.StatusRejected:
		out = append(out, NotificationRecord{
			ID:            uuid.New().String(),
			Type:          string(TypeApprovalRejected),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Message:       fmt.Sprintf("%q was rejected: %s", doc.Title, doc.RejectionReason),
			Recipients:    docs.JSONStringSlice{doc.CreatedBy},
			DedupeKey:     fmt.Sprintf("rejected-v%d", doc.Version),
		})

	case current == docs.StatusApproved || current == docs.StatusPublished:
		out = append(out, NotificationRecord{
			ID:            uuid.New().String(),
			Type:          string(TypeApprovalComplete),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Message:       fmt.Sprintf("%q (v%d) is now %s", doc.Title, doc.Version, current),
			Recipients:    docs.JSONStringSlice{doc.CreatedBy},
			DedupeKey:     fmt.Sprintf("%s-v%d", current, doc.Version),
		})
	}

	return out
}

// deriveExpiryReminder builds the per-day deduped reminder record.
func deriveExpiryReminder(doc docs.DocumentRecord, now time.Time) NotificationRecord {
	var expires string
	if doc.ExpiryDate != nil {
		expires = doc.ExpiryDate.Format("2006-01-02")
	}
	return NotificationRecord{
		ID:            uuid.New().String(),
		Type:          string(TypeExpiryReminder),
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Message:       fmt.Sprintf("%q expires on %s", doc.Title, expires),
		Recipients:    docs.JSONStringSlice{doc.CreatedBy},
		DedupeKey:     "expiry-" + now.UTC().Format("2006-01-02"),
	}
}
