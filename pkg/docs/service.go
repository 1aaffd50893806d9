package docs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuvault/docuvault/pkg/session"
)

// NotificationSink receives state-change events for notification derivation.
// It is satisfied by notify.Emitter but keeps this package free of a
// dependency on the notification store.
type NotificationSink interface {
	OnTransition(ctx context.Context, doc DocumentRecord, previous Status) error
}

// noopSink drops events; used when no notification emission is configured.
type noopSink struct{}

func (noopSink) OnTransition(context.Context, DocumentRecord, Status) error { return nil }

// LifecycleService applies status transitions. Every status change in the
// system funnels through here so the transition table is enforced centrally,
// never left to callers.
type LifecycleService struct {
	store      *DocumentStore
	activities *ActivityStore
	machine    *StatusMachine
	sink       NotificationSink
	logger     *slog.Logger
}

// NewLifecycleService creates a LifecycleService. sink may be nil.
func NewLifecycleService(store *DocumentStore, activities *ActivityStore, sink NotificationSink) *LifecycleService {
	if sink == nil {
		sink = noopSink{}
	}
	return &LifecycleService{
		store:      store,
		activities: activities,
		machine:    NewStatusMachine(),
		sink:       sink,
		logger:     slog.Default(),
	}
}

// Machine exposes the status machine for validation queries.
func (s *LifecycleService) Machine() *StatusMachine {
	return s.machine
}

// Transition moves the document to the target status. The status change and
// its activity record are committed in one transaction, guarded by a
// compare-and-swap on the version the document was read at; notification
// emission follows the commit. On any failure the stored document is
// unchanged.
func (s *LifecycleService) Transition(ctx context.Context, documentID string, target Status, sess session.Session, note string) (*DocumentRecord, error) {
	var out *DocumentRecord
	var previous Status

	err := s.store.DB().Transaction(func(tx *gorm.DB) error {
		var err error
		out, previous, err = s.TransitionTx(tx, documentID, target, sess, note)
		return err
	})
	if err != nil {
		s.RecordDenied(documentID, target, sess, err)
		return nil, err
	}

	// Best-effort emission; the transition itself has already committed.
	if err := s.sink.OnTransition(ctx, *out, previous); err != nil {
		s.logger.Error("failed to emit transition notification", "document_id", out.ID, "status", string(target), "error", err)
	}

	return out, nil
}

// TransitionTx applies the transition inside the caller's transaction so the
// status change and its activity record commit or roll back together with the
// caller's other writes. It returns the updated record and the previous
// status; the caller emits notifications (and records denied attempts via
// RecordDenied) after the transaction settles.
func (s *LifecycleService) TransitionTx(tx *gorm.DB, documentID string, target Status, sess session.Session, note string) (*DocumentRecord, Status, error) {
	store := s.store.WithTx(tx)
	doc, err := store.Get(documentID)
	if err != nil {
		return nil, "", err
	}
	if doc == nil {
		return nil, "", &TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
	}

	previous := Status(doc.Status)
	updated, err := s.machine.Apply(*doc, target, sess.UserName, note, time.Now())
	if err != nil {
		return nil, previous, err
	}

	if err := store.UpdateCAS(&updated, doc.Version); err != nil {
		return nil, previous, err
	}

	if err := s.activities.WithTx(tx).Append(&ActivityRecord{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Action:     "transition." + string(target),
		Actor:      sess.UserID,
		Outcome:    "success",
		Detail:     note,
		OldValue:   JSONAny{"status": string(previous)},
		NewValue:   JSONAny{"status": string(target)},
	}); err != nil {
		return nil, previous, err
	}

	return &updated, previous, nil
}

// RecordDenied appends a denied-transition activity for a failed attempt.
// It runs outside any transaction: the denial must survive the rollback of
// the attempt that caused it. Only rule violations are recorded; missing
// documents and backend failures are not attempts on a document's history.
func (s *LifecycleService) RecordDenied(documentID string, target Status, sess session.Session, cause error) {
	te, ok := cause.(*TransitionError)
	if !ok || te.Code == "DOC_NOT_FOUND" {
		return
	}
	if err := s.activities.Append(&ActivityRecord{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Action:     "transition." + string(target),
		Actor:      sess.UserID,
		Outcome:    "denied",
		Detail:     cause.Error(),
	}); err != nil {
		s.logger.Error("failed to record denied transition", "document_id", documentID, "error", err)
	}
}

// Sink exposes the notification sink for callers that drive transitions
// through TransitionTx and emit after their own commit.
func (s *LifecycleService) Sink() NotificationSink {
	return s.sink
}
