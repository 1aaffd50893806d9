package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/session"
)

// NewRouter creates a chi router with notification-center routes. Notifications
// are always scoped to the session user; there is no cross-user read surface.
func NewRouter(store *NotificationStore) chi.Router {
	r := chi.NewRouter()
	r.Get("/", listNotificationsHandler(store))
	r.Post("/{id}/read", markReadHandler(store))
	r.Post("/clear", clearHandler(store))
	return r
}

// listNotificationsHandler returns a handler that lists the session user's
// notifications.
// GET /api/v1alpha1/notifications?unread=true&pageSize=&pageToken=
func listNotificationsHandler(store *NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		unreadOnly := r.URL.Query().Get("unread") == "true"

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.ListForRecipient(sess.UserID, unreadOnly, pageSize, pageToken)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list notifications: %v", err))
			return
		}

		notifications := make([]Notification, len(records))
		for i, rec := range records {
			notifications[i] = Notification{
				ID:            rec.ID,
				Type:          Type(rec.Type),
				DocumentID:    rec.DocumentID,
				DocumentTitle: rec.DocumentTitle,
				Message:       rec.Message,
				Recipients:    []string(rec.Recipients),
				Read:          rec.Read,
				CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
			}
		}

		writeJSON(w, http.StatusOK, NotificationList{
			Notifications: notifications,
			NextPageToken: nextToken,
			TotalSize:     total,
		})
	}
}

// markReadHandler returns a handler that marks one notification as read.
// POST /api/v1alpha1/notifications/{id}/read
func markReadHandler(store *NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := store.MarkRead(id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "read", "id": id})
	}
}

// clearHandler returns a handler that clears the session user's notifications.
// POST /api/v1alpha1/notifications/clear
func clearHandler(store *NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		deleted, err := store.ClearForRecipient(sess.UserID)
		if err != nil {
			writeError(w, storeErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "deleted": deleted})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
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
