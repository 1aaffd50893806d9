package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/session"
)

// ReminderEmitter persists the notifications a sweep produces. Satisfied by
// notify.Emitter; emission is idempotent at the store, so re-running a sweep
// over the same window creates nothing new.
type ReminderEmitter interface {
	EmitExpiryReminder(ctx context.Context, doc docs.DocumentRecord, now time.Time) error
	EmitReviewReminder(ctx context.Context, doc docs.DocumentRecord, now time.Time) error
	EmitApprovalOverdue(ctx context.Context, doc docs.DocumentRecord, now time.Time) error
}

// Sweeper walks documents with approaching or passed deadlines. Each document
// is handled independently: a failure on one is counted and logged, never
// aborting the rest of the scan.
type Sweeper struct {
	documents *docs.DocumentStore
	lifecycle *docs.LifecycleService
	emitter   ReminderEmitter
	runs      *SweepStore
	cfg       *SweepConfig
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper. logger may be nil.
func NewSweeper(documents *docs.DocumentStore, lifecycle *docs.LifecycleService, emitter ReminderEmitter, runs *SweepStore, cfg *SweepConfig, logger *slog.Logger) *Sweeper {
	if cfg == nil {
		cfg = DefaultSweepConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		documents: documents,
		lifecycle: lifecycle,
		emitter:   emitter,
		runs:      runs,
		cfg:       cfg,
		logger:    logger,
	}
}

// sweepSkips reports whether the sweeps never touch documents in this status.
func sweepSkips(status docs.Status) bool {
	return status == docs.StatusArchived || status == docs.StatusExpired ||
		status == docs.StatusDraft || status == docs.StatusRejected
}

// ScanExpiry runs one expiry sweep as of now: documents past their expiry date
// move to expired, documents inside the reminder window get a reminder, and
// stale pending documents get an overdue notice. The run is recorded.
func (s *Sweeper) ScanExpiry(ctx context.Context, now time.Time, sess session.Session) (*Result, error) {
	started := time.Now()
	result := &Result{}
	var lastErr string

	// Pass 1: expire documents whose expiry date has passed.
	s.forEach(docs.ListFilter{ExpiringBefore: &now}, func(doc *docs.DocumentRecord) {
		result.Scanned++
		status := docs.Status(doc.Status)
		if status == docs.StatusArchived || status == docs.StatusExpired {
			return
		}
		if _, err := s.lifecycle.Transition(ctx, doc.ID, docs.StatusExpired, sess, "expiry date passed"); err != nil {
			result.Errors++
			lastErr = err.Error()
			s.logger.Error("failed to expire document", "document_id", doc.ID, "error", err)
			return
		}
		result.Expired++
		s.logger.Info("document expired", "document_id", doc.ID, "title", doc.Title)
	})

	// Pass 2: remind about documents expiring inside the window.
	window := now.AddDate(0, 0, s.cfg.ReminderDays)
	s.forEach(docs.ListFilter{ExpiringBefore: &window}, func(doc *docs.DocumentRecord) {
		if sweepSkips(docs.Status(doc.Status)) {
			return
		}
		if doc.ExpiryDate == nil || doc.ExpiryDate.Before(now) {
			return
		}
		result.Scanned++
		if err := s.emitter.EmitExpiryReminder(ctx, *doc, now); err != nil {
			result.Errors++
			lastErr = err.Error()
			s.logger.Error("failed to emit expiry reminder", "document_id", doc.ID, "error", err)
			return
		}
		result.Reminded++
	})

	// Pass 3: overdue notices for documents sitting too long in a pending state.
	stale := now.AddDate(0, 0, -s.cfg.OverdueDays)
	s.forEach(docs.ListFilter{PendingBefore: &stale}, func(doc *docs.DocumentRecord) {
		if !docs.Status(doc.Status).IsPending() {
			return
		}
		result.Scanned++
		if err := s.emitter.EmitApprovalOverdue(ctx, *doc, now); err != nil {
			result.Errors++
			lastErr = err.Error()
			s.logger.Error("failed to emit overdue notice", "document_id", doc.ID, "error", err)
			return
		}
		result.Reminded++
	})

	s.record(KindExpiry, sess.UserID, started, result, lastErr)
	return result, nil
}

// ScanReviews runs one recall-schedule sweep as of now: documents whose next
// review date falls inside the review window get a review-due reminder.
func (s *Sweeper) ScanReviews(ctx context.Context, now time.Time, sess session.Session) (*Result, error) {
	started := time.Now()
	result := &Result{}
	var lastErr string

	window := now.AddDate(0, 0, s.cfg.ReviewDays)
	s.forEach(docs.ListFilter{ReviewDueBefore: &window}, func(doc *docs.DocumentRecord) {
		if sweepSkips(docs.Status(doc.Status)) {
			return
		}
		result.Scanned++
		if err := s.emitter.EmitReviewReminder(ctx, *doc, now); err != nil {
			result.Errors++
			lastErr = err.Error()
			s.logger.Error("failed to emit review reminder", "document_id", doc.ID, "error", err)
			return
		}
		result.Reminded++
	})

	s.record(KindReview, sess.UserID, started, result, lastErr)
	return result, nil
}

// Run starts the background sweep loop. It returns immediately when no
// interval is configured; external schedulers then drive sweeps over HTTP.
// Otherwise it blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.cfg.Enabled || s.cfg.Interval <= 0 {
		s.logger.Info("background sweep loop disabled")
		return
	}

	s.logger.Info("background sweep loop starting", "interval", s.cfg.Interval.String())
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	sess := session.Session{UserID: "system", UserName: "system", Role: "service", Service: true}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("background sweep loop stopped")
			return
		case <-ticker.C:
			now := time.Now()
			if _, err := s.ScanExpiry(ctx, now, sess); err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
			}
			if _, err := s.ScanReviews(ctx, now, sess); err != nil {
				s.logger.Error("review sweep failed", "error", err)
			}
			if s.cfg.RetentionDays > 0 && s.runs != nil {
				cutoff := now.AddDate(0, 0, -s.cfg.RetentionDays)
				if deleted, err := s.runs.DeleteOlderThan(cutoff); err != nil {
					s.logger.Error("failed to delete old sweep runs", "error", err)
				} else if deleted > 0 {
					s.logger.Info("deleted old sweep runs", "count", deleted)
				}
			}
		}
	}
}

// forEach pages through documents matching the filter and applies fn to each.
func (s *Sweeper) forEach(filter docs.ListFilter, fn func(doc *docs.DocumentRecord)) {
	pageToken := ""
	for {
		records, nextToken, _, err := s.documents.List(filter, 100, pageToken)
		if err != nil {
			s.logger.Error("sweep listing failed", "error", err)
			return
		}
		for i := range records {
			fn(&records[i])
		}
		if nextToken == "" {
			return
		}
		pageToken = nextToken
	}
}

// record persists the run summary; failures are logged, not returned, since
// the sweep itself already happened.
func (s *Sweeper) record(kind SweepKind, triggeredBy string, started time.Time, result *Result, lastErr string) {
	if s.runs == nil {
		return
	}
	err := s.runs.Record(&SweepRunRecord{
		ID:          uuid.New().String(),
		Kind:        kind,
		TriggeredBy: triggeredBy,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Scanned:     result.Scanned,
		Expired:     result.Expired,
		Reminded:    result.Reminded,
		Errors:      result.Errors,
		LastError:   lastErr,
	})
	if err != nil {
		s.logger.Error("failed to record sweep run", "kind", kind, "error", err)
	}
}
