package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/notify"
	"github.com/docuvault/docuvault/pkg/session"
)

type sweepFixture struct {
	sweeper   *Sweeper
	documents *docs.DocumentStore
	notify    *notify.NotificationStore
	runs      *SweepStore
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	documents := docs.NewDocumentStore(db)
	require.NoError(t, documents.AutoMigrate())
	notifications := notify.NewNotificationStore(db)
	require.NoError(t, notifications.AutoMigrate())
	runs := NewSweepStore(db)
	require.NoError(t, runs.AutoMigrate())

	emitter := notify.NewEmitter(notifications)
	lifecycle := docs.NewLifecycleService(documents, docs.NewActivityStore(db), emitter)

	return &sweepFixture{
		sweeper:   NewSweeper(documents, lifecycle, emitter, runs, DefaultSweepConfig(), nil),
		documents: documents,
		notify:    notifications,
		runs:      runs,
	}
}

var serviceSession = session.Session{UserID: "scheduler", UserName: "scheduler", Role: "service", Service: true}

func TestSweeper_ExpiresPastDueDocuments(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	past := now.Add(-48 * time.Hour)
	future := now.AddDate(0, 0, 60)
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "overdue", Title: "Expired Cert", Category: string(docs.CategoryCertificate),
		Status: string(docs.StatusActive), CreatedBy: "alice", ExpiryDate: &past,
	}))
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "fresh", Title: "Valid Cert", Category: string(docs.CategoryCertificate),
		Status: string(docs.StatusActive), CreatedBy: "alice", ExpiryDate: &future,
	}))

	result, err := f.sweeper.ScanExpiry(context.Background(), now, serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 0, result.Errors)

	doc, err := f.documents.Get("overdue")
	require.NoError(t, err)
	assert.Equal(t, string(docs.StatusExpired), doc.Status)

	doc, err = f.documents.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, string(docs.StatusActive), doc.Status)
}

func TestSweeper_ExpiryIsMonotonic(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	past := now.Add(-48 * time.Hour)
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "overdue", Title: "Expired Cert", Category: string(docs.CategoryCertificate),
		Status: string(docs.StatusActive), CreatedBy: "alice", ExpiryDate: &past,
	}))

	result, err := f.sweeper.ScanExpiry(context.Background(), now, serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)

	// Re-running the sweep does not touch an already-expired document.
	result, err = f.sweeper.ScanExpiry(context.Background(), now.Add(time.Hour), serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Expired)
	assert.Equal(t, 0, result.Errors)

	doc, err := f.documents.Get("overdue")
	require.NoError(t, err)
	assert.Equal(t, string(docs.StatusExpired), doc.Status)
}

func TestSweeper_RemindersInsideWindowWithoutDuplicates(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	soon := now.AddDate(0, 0, 10)
	far := now.AddDate(0, 0, 90)
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "soon", Title: "Expiring Cert", Category: string(docs.CategoryCertificate),
		Status: string(docs.StatusActive), CreatedBy: "alice", ExpiryDate: &soon,
	}))
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "far", Title: "Distant Cert", Category: string(docs.CategoryCertificate),
		Status: string(docs.StatusActive), CreatedBy: "alice", ExpiryDate: &far,
	}))

	result, err := f.sweeper.ScanExpiry(context.Background(), now, serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)

	// A second sweep on the same day adds nothing.
	_, err = f.sweeper.ScanExpiry(context.Background(), now.Add(4*time.Hour), serviceSession)
	require.NoError(t, err)

	records, _, total, err := f.notify.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, string(notify.TypeExpiryReminder), records[0].Type)
	assert.Equal(t, "soon", records[0].DocumentID)

	// The next day the reminder fires again.
	result, err = f.sweeper.ScanExpiry(context.Background(), now.AddDate(0, 0, 1), serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)

	_, _, total, err = f.notify.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSweeper_OverdueNoticesForStalePending(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	stale := now.AddDate(0, 0, -10)
	recent := now.Add(-time.Hour)
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "stale", Title: "Stuck SOP", Category: string(docs.CategorySOP),
		Status: string(docs.StatusPendingApproval), CreatedBy: "alice",
		PendingSince: &stale, Approvers: docs.JSONStringSlice{"bob"},
	}))
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "recent", Title: "Fresh SOP", Category: string(docs.CategorySOP),
		Status: string(docs.StatusPendingApproval), CreatedBy: "alice",
		PendingSince: &recent, Approvers: docs.JSONStringSlice{"bob"},
	}))

	result, err := f.sweeper.ScanExpiry(context.Background(), now, serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)

	records, _, _, err := f.notify.ListForRecipient("bob", false, 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(notify.TypeApprovalOverdue), records[0].Type)
	assert.Equal(t, "stale", records[0].DocumentID)
}

func TestSweeper_ReviewSweep(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	due := now.AddDate(0, 0, 5)
	later := now.AddDate(0, 0, 60)
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "due", Title: "HACCP Plan", Category: string(docs.CategoryHACCPPlan),
		Status: string(docs.StatusActive), CreatedBy: "alice", NextReviewDate: &due,
	}))
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "later", Title: "Other Plan", Category: string(docs.CategoryHACCPPlan),
		Status: string(docs.StatusActive), CreatedBy: "alice", NextReviewDate: &later,
	}))

	result, err := f.sweeper.ScanReviews(context.Background(), now, serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)

	// Idempotent per day.
	_, err = f.sweeper.ScanReviews(context.Background(), now, serviceSession)
	require.NoError(t, err)

	_, _, total, err := f.notify.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSweeper_RecordsRuns(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	_, err := f.sweeper.ScanExpiry(context.Background(), now, serviceSession)
	require.NoError(t, err)
	_, err = f.sweeper.ScanReviews(context.Background(), now, serviceSession)
	require.NoError(t, err)

	runs, err := f.runs.ListRecent("", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	expiryRuns, err := f.runs.ListRecent(KindExpiry, 10)
	require.NoError(t, err)
	require.Len(t, expiryRuns, 1)
	assert.Equal(t, "scheduler", expiryRuns[0].TriggeredBy)
	assert.False(t, expiryRuns[0].FinishedAt.IsZero())
}

func TestSweeper_ExpiryExactlyNowGetsReminder(t *testing.T) {
	f := newSweepFixture(t)
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)

	// An expiry date equal to the sweep instant is not yet past due, so the
	// document is reminded rather than expired.
	onTheDot := now
	require.NoError(t, f.documents.Create(&docs.DocumentRecord{
		ID: "boundary", Title: "Renewing Cert", Category: string(docs.CategoryCertificate),
		Status: string(docs.StatusActive), CreatedBy: "alice", ExpiryDate: &onTheDot,
	}))

	result, err := f.sweeper.ScanExpiry(context.Background(), now, serviceSession)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Expired)
	assert.Equal(t, 1, result.Reminded)

	doc, err := f.documents.Get("boundary")
	require.NoError(t, err)
	assert.Equal(t, string(docs.StatusActive), doc.Status)

	records, _, total, err := f.notify.ListForRecipient("alice", false, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, string(notify.TypeExpiryReminder), records[0].Type)
}
