package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault/pkg/docs"
)

func TestDeriveFromTransition(t *testing.T) {
	tests := []struct {
		name       string
		doc        docs.DocumentRecord
		previous   docs.Status
		wantType   Type
		wantTo     []string
		wantDedupe string
		wantNone   bool
	}{
		{
			name: "pending with approvers requests approval",
			doc: docs.DocumentRecord{
				ID: "d1", Title: "SOP", Version: 1,
				Status:    string(docs.StatusPendingApproval),
				Approvers: docs.JSONStringSlice{"bob", "carol"},
			},
			previous:   docs.StatusDraft,
			wantType:   TypeApprovalRequest,
			wantTo:     []string{"bob", "carol"},
			wantDedupe: "pending_approval-v1",
		},
		{
			name: "pending without approvers emits nothing",
			doc: docs.DocumentRecord{
				ID: "d1", Title: "SOP", Version: 1,
				Status: string(docs.StatusPendingReview),
			},
			previous: docs.StatusDraft,
			wantNone: true,
		},
		{
			name: "rejection notifies the author",
			doc: docs.DocumentRecord{
				ID: "d1", Title: "SOP", Version: 3, CreatedBy: "alice",
				Status:          string(docs.StatusRejected),
				RejectionReason: "incomplete",
			},
			previous:   docs.StatusPendingApproval,
			wantType:   TypeApprovalRejected,
			wantTo:     []string{"alice"},
			wantDedupe: "rejected-v3",
		},
		{
			name: "approval notifies the author",
			doc: docs.DocumentRecord{
				ID: "d1", Title: "SOP", Version: 2, CreatedBy: "alice",
				Status: string(docs.StatusApproved),
			},
			previous:   docs.StatusPendingApproval,
			wantType:   TypeApprovalComplete,
			wantTo:     []string{"alice"},
			wantDedupe: "approved-v2",
		},
		{
			name: "archive emits nothing",
			doc: docs.DocumentRecord{
				ID: "d1", Title: "SOP", Version: 2, CreatedBy: "alice",
				Status: string(docs.StatusArchived),
			},
			previous: docs.StatusActive,
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := DeriveFromTransition(tt.doc, tt.previous)
			if tt.wantNone {
				assert.Empty(t, out)
				return
			}
			require.Len(t, out, 1)
			assert.Equal(t, string(tt.wantType), out[0].Type)
			assert.Equal(t, docs.JSONStringSlice(tt.wantTo), out[0].Recipients)
			assert.Equal(t, tt.wantDedupe, out[0].DedupeKey)
			assert.Equal(t, "d1", out[0].DocumentID)
			assert.NotEmpty(t, out[0].ID)
			assert.NotEmpty(t, out[0].Message)
		})
	}
}

func TestEmitter_ExpiryReminderDedupedPerDay(t *testing.T) {
	store := newTestStore(t)
	emitter := NewEmitter(store)

	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := docs.DocumentRecord{
		ID: "d1", Title: "Cert", Version: 1, CreatedBy: "alice", ExpiryDate: &expiry,
	}

	day1 := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, emitter.EmitExpiryReminder(context.Background(), doc, day1))
	// Second run on the same day is a no-op.
	require.NoError(t, emitter.EmitExpiryReminder(context.Background(), doc, day1.Add(6*time.Hour)))

	_, _, total, err := store.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// The next day produces a fresh reminder.
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, emitter.EmitExpiryReminder(context.Background(), doc, day2))

	_, _, total, err = store.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestEmitter_ReviewAndExpiryRemindersDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	emitter := NewEmitter(store)

	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	review := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	doc := docs.DocumentRecord{
		ID: "d1", Title: "Cert", Version: 1, CreatedBy: "alice",
		ExpiryDate: &expiry, NextReviewDate: &review,
	}

	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, emitter.EmitExpiryReminder(context.Background(), doc, now))
	require.NoError(t, emitter.EmitReviewReminder(context.Background(), doc, now))

	_, _, total, err := store.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestEmitter_ApprovalOverdueGoesToApprovers(t *testing.T) {
	store := newTestStore(t)
	emitter := NewEmitter(store)

	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	doc := docs.DocumentRecord{
		ID: "d1", Title: "SOP", Version: 1, CreatedBy: "alice",
		Status:       string(docs.StatusPendingApproval),
		PendingSince: &since,
		Approvers:    docs.JSONStringSlice{"bob", "carol"},
	}

	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, emitter.EmitApprovalOverdue(context.Background(), doc, now))
	require.NoError(t, emitter.EmitApprovalOverdue(context.Background(), doc, now))

	records, _, total, err := store.ListForRecipient("bob", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, string(TypeApprovalOverdue), records[0].Type)
}

func TestEmitter_StepRequestDedupe(t *testing.T) {
	store := newTestStore(t)
	emitter := NewEmitter(store)

	doc := docs.DocumentRecord{ID: "d1", Title: "SOP", Version: 1}

	require.NoError(t, emitter.EmitApprovalRequest(context.Background(), doc, 1, []string{"carol"}))
	require.NoError(t, emitter.EmitApprovalRequest(context.Background(), doc, 1, []string{"carol"}))

	_, _, total, err := store.ListForRecipient("carol", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
