package docs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuvault/docuvault/pkg/session"
)

// CheckoutService enforces the cooperative single-writer editing convention.
// It is an application-layer discipline, not a distributed lock: the store's
// compare-and-swap on version is what protects against racing writers.
type CheckoutService struct {
	store      *DocumentStore
	versions   *VersionStore
	activities *ActivityStore
}

// NewCheckoutService creates a CheckoutService over the given stores.
func NewCheckoutService(store *DocumentStore, versions *VersionStore, activities *ActivityStore) *CheckoutService {
	return &CheckoutService{store: store, versions: versions, activities: activities}
}

// CheckOut marks the document as checked out by the session user. Fails with
// an AlreadyCheckedOutError if another user holds the checkout or the document
// is locked. Re-checkout by the current holder refreshes the timestamp.
func (c *CheckoutService) CheckOut(ctx context.Context, documentID string, sess session.Session) (*DocumentRecord, error) {
	var out *DocumentRecord
	err := c.store.DB().Transaction(func(tx *gorm.DB) error {
		store := c.store.WithTx(tx)
		doc, err := store.Get(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return &TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
		}

		if doc.CheckoutStatus != string(CheckoutAvailable) && doc.CheckoutBy != sess.UserID {
			return &AlreadyCheckedOutError{
				DocumentID: doc.ID,
				HolderID:   doc.CheckoutBy,
				HolderName: doc.CheckoutByName,
			}
		}

		expected := doc.Version
		now := time.Now()
		doc.CheckoutStatus = string(CheckoutCheckedOut)
		doc.CheckoutBy = sess.UserID
		doc.CheckoutByName = sess.UserName
		doc.CheckoutAt = &now

		if err := store.UpdateCAS(doc, expected); err != nil {
			return err
		}

		if err := c.activities.WithTx(tx).Append(&ActivityRecord{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Action:     "checkout",
			Actor:      sess.UserID,
			Outcome:    "success",
		}); err != nil {
			return err
		}

		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckIn releases the checkout held by the session user, increments the
// document version by exactly 1, and appends a version log entry carrying the
// check-in comment. Fails with ErrNotCheckoutOwner if the session user does
// not hold the checkout. The status bump, version record, and activity record
// are written in one transaction.
func (c *CheckoutService) CheckIn(ctx context.Context, documentID string, sess session.Session, comment string) (*DocumentRecord, error) {
	var out *DocumentRecord
	err := c.store.DB().Transaction(func(tx *gorm.DB) error {
		store := c.store.WithTx(tx)
		doc, err := store.Get(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return &TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
		}

		if doc.CheckoutStatus == string(CheckoutAvailable) || doc.CheckoutBy != sess.UserID {
			return ErrNotCheckoutOwner
		}

		expected := doc.Version
		doc.Version = expected + 1
		doc.CheckoutStatus = string(CheckoutAvailable)
		doc.CheckoutBy = ""
		doc.CheckoutByName = ""
		doc.CheckoutAt = nil

		if err := store.UpdateCAS(doc, expected); err != nil {
			return err
		}

		if err := c.versions.WithTx(tx).Append(&DocumentVersionRecord{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Version:    doc.Version,
			Comment:    comment,
			CreatedBy:  sess.UserID,
			FileName:   doc.FileName,
			SizeBytes:  doc.SizeBytes,
		}); err != nil {
			return err
		}

		if err := c.activities.WithTx(tx).Append(&ActivityRecord{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Action:     "checkin",
			Actor:      sess.UserID,
			Outcome:    "success",
			Detail:     comment,
			OldValue:   JSONAny{"version": expected},
			NewValue:   JSONAny{"version": doc.Version},
		}); err != nil {
			return err
		}

		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdminUnlock force-clears a checkout regardless of holder. It exists as a
// privileged override path and always leaves its own audit trail naming the
// displaced holder. The document version is not bumped.
func (c *CheckoutService) AdminUnlock(ctx context.Context, documentID string, sess session.Session, reason string) (*DocumentRecord, error) {
	var out *DocumentRecord
	err := c.store.DB().Transaction(func(tx *gorm.DB) error {
		store := c.store.WithTx(tx)
		doc, err := store.Get(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return &TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
		}

		displaced := doc.CheckoutBy
		expected := doc.Version
		doc.CheckoutStatus = string(CheckoutAvailable)
		doc.CheckoutBy = ""
		doc.CheckoutByName = ""
		doc.CheckoutAt = nil

		if err := store.UpdateCAS(doc, expected); err != nil {
			return err
		}

		if err := c.activities.WithTx(tx).Append(&ActivityRecord{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Action:     "admin_unlock",
			Actor:      sess.UserID,
			Outcome:    "success",
			Detail:     reason,
			OldValue:   JSONAny{"checkoutBy": displaced},
		}); err != nil {
			return err
		}

		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
