package docs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/docuvault/docuvault/pkg/session"
)

func newTestCheckout(t *testing.T) (*CheckoutService, *DocumentStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	store := NewDocumentStore(db)
	svc := NewCheckoutService(store, NewVersionStore(db), NewActivityStore(db))
	return svc, store, db
}

func seedDocument(t *testing.T, store *DocumentStore, id string) *DocumentRecord {
	t.Helper()
	record := &DocumentRecord{
		ID:        id,
		Title:     "Allergen Control SOP",
		Category:  string(CategorySOP),
		FileName:  "allergen-control.pdf",
		CreatedBy: "alice",
	}
	require.NoError(t, store.Create(record))
	return record
}

func TestCheckoutService_CheckOutCheckInRoundTrip(t *testing.T) {
	svc, store, db := newTestCheckout(t)
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}

	doc, err := svc.CheckOut(context.Background(), "d1", alice)
	require.NoError(t, err)
	assert.Equal(t, string(CheckoutCheckedOut), doc.CheckoutStatus)
	assert.Equal(t, "alice", doc.CheckoutBy)
	assert.Equal(t, 1, doc.Version)
	require.NotNil(t, doc.CheckoutAt)

	doc, err = svc.CheckIn(context.Background(), "d1", alice, "fixed section 4")
	require.NoError(t, err)
	assert.Equal(t, string(CheckoutAvailable), doc.CheckoutStatus)
	assert.Empty(t, doc.CheckoutBy)
	assert.Equal(t, 2, doc.Version)

	// Check-in appended exactly one version record carrying the comment.
	versions, _, total, err := NewVersionStore(db).ListByDocument("d1", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, versions, 1)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, "fixed section 4", versions[0].Comment)
	assert.Equal(t, "alice", versions[0].CreatedBy)
}

func TestCheckoutService_Contention(t *testing.T) {
	svc, store, _ := newTestCheckout(t)
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}
	bob := session.Session{UserID: "bob", UserName: "Bob"}

	_, err := svc.CheckOut(context.Background(), "d1", alice)
	require.NoError(t, err)

	// Bob is refused and told who holds the document.
	_, err = svc.CheckOut(context.Background(), "d1", bob)
	require.Error(t, err)
	var aco *AlreadyCheckedOutError
	require.True(t, errors.As(err, &aco))
	assert.Equal(t, "alice", aco.HolderID)
	assert.Contains(t, err.Error(), "Alice")

	// Re-checkout by the holder is allowed.
	_, err = svc.CheckOut(context.Background(), "d1", alice)
	require.NoError(t, err)

	// Bob cannot check in a document he does not hold.
	_, err = svc.CheckIn(context.Background(), "d1", bob, "")
	assert.True(t, errors.Is(err, ErrNotCheckoutOwner))

	// Checking in an available document is also refused.
	_, err = svc.CheckIn(context.Background(), "d1", alice, "done")
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), "d1", alice, "again")
	assert.True(t, errors.Is(err, ErrNotCheckoutOwner))
}

func TestCheckoutService_AdminUnlock(t *testing.T) {
	svc, store, db := newTestCheckout(t)
	seedDocument(t, store, "d1")

	alice := session.Session{UserID: "alice", UserName: "Alice"}
	admin := session.Session{UserID: "root", UserName: "Root", Role: "admin"}

	_, err := svc.CheckOut(context.Background(), "d1", alice)
	require.NoError(t, err)

	doc, err := svc.AdminUnlock(context.Background(), "d1", admin, "editor left the company")
	require.NoError(t, err)
	assert.Equal(t, string(CheckoutAvailable), doc.CheckoutStatus)
	assert.Empty(t, doc.CheckoutBy)
	// Unlock never bumps the version; no content changed.
	assert.Equal(t, 1, doc.Version)

	// The audit trail names the displaced holder.
	activities, _, _, err := NewActivityStore(db).ListByDocument("d1", 10, "")
	require.NoError(t, err)
	var unlock *ActivityRecord
	for i := range activities {
		if activities[i].Action == "admin_unlock" {
			unlock = &activities[i]
		}
	}
	require.NotNil(t, unlock)
	assert.Equal(t, "root", unlock.Actor)
	assert.Equal(t, "alice", unlock.OldValue["checkoutBy"])
	assert.Equal(t, "editor left the company", unlock.Detail)
}

func TestCheckoutService_NotFound(t *testing.T) {
	svc, _, _ := newTestCheckout(t)

	_, err := svc.CheckOut(context.Background(), "ghost", session.Session{UserID: "alice"})
	require.Error(t, err)
	te, ok := err.(*TransitionError)
	require.True(t, ok)
	assert.Equal(t, "DOC_NOT_FOUND", te.Code)
}
