package docs

import (
	"fmt"
	"time"
)

// successors is the fixed transition table. A target status is reachable from
// a source status iff it appears in the source's successor set. Archived is a
// successor of every non-archived status; Expired is a successor of every
// non-archived, non-expired status but additionally requires a past expiry
// date, checked in Apply.
var successors = map[Status][]Status{
	StatusDraft:           {StatusPendingReview, StatusPendingApproval, StatusArchived, StatusExpired},
	StatusPendingReview:   {StatusInReview, StatusApproved, StatusRejected, StatusArchived, StatusExpired},
	StatusInReview:        {StatusApproved, StatusRejected, StatusArchived, StatusExpired},
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusArchived, StatusExpired},
	StatusApproved:        {StatusPublished, StatusActive, StatusArchived, StatusExpired},
	StatusPublished:       {StatusArchived, StatusExpired},
	StatusActive:          {StatusArchived, StatusExpired},
	StatusRejected:        {StatusDraft, StatusArchived, StatusExpired},
	StatusExpired:         {StatusDraft, StatusArchived},
	StatusArchived:        {},
}

// TransitionError is a structured error for rejected status transitions.
type TransitionError struct {
	Code    string `json:"code"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Message string `json:"message"`
}

func (e *TransitionError) Error() string {
	return e.Message
}

// StatusMachine validates and applies document status transitions. All status
// changes in the system go through it; callers never mutate status directly.
type StatusMachine struct {
	successors map[Status][]Status
}

// NewStatusMachine creates a machine with the default transition table.
func NewStatusMachine() *StatusMachine {
	return &StatusMachine{successors: successors}
}

// ValidateTransition checks whether from->to is permitted by the table.
// Returns nil if allowed, a *TransitionError with a machine-readable code if not.
func (m *StatusMachine) ValidateTransition(from, to Status) error {
	for _, s := range m.successors[from] {
		if s == to {
			return nil
		}
	}
	return &TransitionError{
		Code:    "DOC_INVALID_TRANSITION",
		From:    from,
		To:      to,
		Message: fmt.Sprintf("no transition defined from %s to %s", from, to),
	}
}

// AllowedTransitions returns all valid target statuses from the given status.
func (m *StatusMachine) AllowedTransitions(from Status) []Status {
	out := make([]Status, len(m.successors[from]))
	copy(out, m.successors[from])
	return out
}

// Apply validates the transition and returns an updated copy of the document.
// On success the copy carries the target status, a human-readable last_action,
// pending_since set or cleared per the target's pending-ness, and
// rejection_reason set only when the target is Rejected. The input document is
// never modified, so a failed transition leaves the caller's state unchanged.
func (m *StatusMachine) Apply(doc DocumentRecord, target Status, actor, note string, now time.Time) (DocumentRecord, error) {
	from := Status(doc.Status)
	if err := m.ValidateTransition(from, target); err != nil {
		return DocumentRecord{}, err
	}

	if target == StatusExpired {
		if doc.ExpiryDate == nil || !doc.ExpiryDate.Before(now) {
			return DocumentRecord{}, &TransitionError{
				Code:    "DOC_NOT_EXPIRED",
				From:    from,
				To:      target,
				Message: fmt.Sprintf("document %s cannot expire before its expiry date", doc.ID),
			}
		}
	}

	updated := doc
	updated.Status = string(target)
	updated.LastAction = transitionNote(from, target, actor, note)

	if target.IsPending() {
		t := now
		updated.PendingSince = &t
	} else {
		updated.PendingSince = nil
	}

	if target == StatusRejected {
		updated.RejectionReason = note
	} else {
		updated.RejectionReason = ""
	}

	return updated, nil
}

// transitionNote builds the human-readable last_action audit note.
func transitionNote(from, to Status, actor, note string) string {
	msg := fmt.Sprintf("%s moved document from %s to %s", actor, from, to)
	if note != "" {
		msg += ": " + note
	}
	return msg
}
