package docs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault/pkg/session"
)

// recordingSink captures transition events for assertions.
type recordingSink struct {
	docs     []DocumentRecord
	previous []Status
}

func (r *recordingSink) OnTransition(_ context.Context, doc DocumentRecord, prev Status) error {
	r.docs = append(r.docs, doc)
	r.previous = append(r.previous, prev)
	return nil
}

func newTestLifecycle(t *testing.T) (*LifecycleService, *DocumentStore, *ActivityStore, *recordingSink) {
	t.Helper()
	db := newTestDB(t)
	store := NewDocumentStore(db)
	activities := NewActivityStore(db)
	sink := &recordingSink{}
	return NewLifecycleService(store, activities, sink), store, activities, sink
}

func TestLifecycleService_Transition(t *testing.T) {
	svc, store, activities, sink := newTestLifecycle(t)
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}

	doc, err := svc.Transition(context.Background(), "d1", StatusPendingApproval, alice, "ready")
	require.NoError(t, err)
	assert.Equal(t, string(StatusPendingApproval), doc.Status)
	require.NotNil(t, doc.PendingSince)

	// The accepted transition left an activity entry and fired the sink.
	records, _, _, err := activities.ListByDocument("d1", 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "transition.pending_approval", records[0].Action)
	assert.Equal(t, "success", records[0].Outcome)
	assert.Equal(t, "draft", records[0].OldValue["status"])

	require.Len(t, sink.docs, 1)
	assert.Equal(t, StatusDraft, sink.previous[0])
}

func TestLifecycleService_DeniedTransitionLeavesDocumentUnchanged(t *testing.T) {
	svc, store, activities, sink := newTestLifecycle(t)
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}

	_, err := svc.Transition(context.Background(), "d1", StatusPublished, alice, "")
	require.Error(t, err)
	te, ok := err.(*TransitionError)
	require.True(t, ok)
	assert.Equal(t, "DOC_INVALID_TRANSITION", te.Code)

	got, err := store.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, string(StatusDraft), got.Status)

	// The denial itself is audited, outside the rolled-back write.
	records, _, _, err := activities.ListByDocument("d1", 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "denied", records[0].Outcome)

	assert.Empty(t, sink.docs)
}

func TestLifecycleService_NotFound(t *testing.T) {
	svc, _, activities, _ := newTestLifecycle(t)

	_, err := svc.Transition(context.Background(), "ghost", StatusArchived, session.Session{UserID: "alice"}, "")
	require.Error(t, err)
	te, ok := err.(*TransitionError)
	require.True(t, ok)
	assert.Equal(t, "DOC_NOT_FOUND", te.Code)

	// No activity rows for documents that do not exist.
	records, _, _, err := activities.ListByDocument("ghost", 10, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLifecycleService_FullApprovalPath(t *testing.T) {
	svc, store, _, _ := newTestLifecycle(t)
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}

	for _, target := range []Status{StatusPendingReview, StatusInReview, StatusApproved, StatusPublished, StatusArchived} {
		_, err := svc.Transition(context.Background(), "d1", target, alice, "")
		require.NoError(t, err, "transition to %s", target)
	}

	got, err := store.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, string(StatusArchived), got.Status)

	// Archived is terminal.
	_, err = svc.Transition(context.Background(), "d1", StatusDraft, alice, "")
	require.Error(t, err)
}

// failingSink always errors; notification delivery must never undo a
// committed transition.
type failingSink struct{}

func (failingSink) OnTransition(context.Context, DocumentRecord, Status) error {
	return errors.New("notification backend down")
}

func TestLifecycleService_SinkFailureDoesNotFailTransition(t *testing.T) {
	db := newTestDB(t)
	store := NewDocumentStore(db)
	svc := NewLifecycleService(store, NewActivityStore(db), failingSink{})
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}

	out, err := svc.Transition(context.Background(), "d1", StatusPendingApproval, alice, "")
	require.NoError(t, err)
	assert.Equal(t, string(StatusPendingApproval), out.Status)

	got, err := store.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, string(StatusPendingApproval), got.Status)
}
