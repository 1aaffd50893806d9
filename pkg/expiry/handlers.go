package expiry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/session"
)

// triggerExpiryHandler returns a handler that runs one expiry sweep. Called by
// the external scheduler with a service credential.
// POST /api/v1alpha1/sweep/expiry
func triggerExpiryHandler(sweeper *Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())

		result, err := sweeper.ScanExpiry(r.Context(), time.Now(), sess)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("expiry sweep failed: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// triggerReviewHandler returns a handler that runs one recall-schedule sweep.
// POST /api/v1alpha1/sweep/reviews
func triggerReviewHandler(sweeper *Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())

		result, err := sweeper.ScanReviews(r.Context(), time.Now(), sess)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("review sweep failed: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// listRunsHandler returns a handler that lists recent sweep runs.
// GET /api/v1alpha1/sweep/runs?kind=&limit=
func listRunsHandler(store *SweepStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := SweepKind(r.URL.Query().Get("kind"))
		switch kind {
		case "", KindExpiry, KindReview:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown sweep kind %q", kind))
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		records, err := store.ListRecent(kind, limit)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list sweep runs: %v", err))
			return
		}

		runs := make([]Run, 0, len(records))
		for i := range records {
			runs = append(runs, recordToRun(&records[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

// recordToRun converts a stored sweep run to the API type.
func recordToRun(record *SweepRunRecord) Run {
	out := Run{
		ID:          record.ID,
		Kind:        record.Kind,
		TriggeredBy: record.TriggeredBy,
		StartedAt:   record.StartedAt.Format(time.RFC3339),
		Scanned:     record.Scanned,
		Expired:     record.Expired,
		Reminded:    record.Reminded,
		Errors:      record.Errors,
		LastError:   record.LastError,
	}
	if !record.FinishedAt.IsZero() {
		out.FinishedAt = record.FinishedAt.Format(time.RFC3339)
	}
	return out
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// storeErrorStatus maps a store failure to the HTTP status clients should
// see. Backend outages return 503 so callers retry; everything else is a
// plain 500.
func storeErrorStatus(err error) int {
	if errors.Is(err, docs.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
