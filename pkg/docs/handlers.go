package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/docuvault/docuvault/pkg/session"
)

// validate is the shared request validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// createDocumentRequest is the payload for document creation.
type createDocumentRequest struct {
	Title          string   `json:"title" validate:"required,max=200"`
	Description    string   `json:"description" validate:"max=2000"`
	Category       string   `json:"category" validate:"required"`
	FileName       string   `json:"fileName" validate:"max=255"`
	MimeType       string   `json:"mimeType" validate:"max=100"`
	SizeBytes      int64    `json:"sizeBytes" validate:"gte=0"`
	ExpiryDate     string   `json:"expiryDate" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	NextReviewDate string   `json:"nextReviewDate" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Approvers      []string `json:"approvers" validate:"dive,max=128"`
}

// createDocumentHandler returns a handler that creates a new draft document
// owned by the session user.
// POST /api/v1alpha1/documents
func createDocumentHandler(store *DocumentStore, activities *ActivityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())

		var req createDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		category, err := ParseCategory(req.Category)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		record := &DocumentRecord{
			ID:          uuid.New().String(),
			Title:       req.Title,
			Description: req.Description,
			Category:    string(category),
			FileName:    req.FileName,
			MimeType:    req.MimeType,
			SizeBytes:   req.SizeBytes,
			CreatedBy:   sess.UserID,
			Approvers:   JSONStringSlice(req.Approvers),
			LastAction:  fmt.Sprintf("%s created document", sess.UserName),
		}
		if req.ExpiryDate != "" {
			t, _ := time.Parse(time.RFC3339, req.ExpiryDate)
			record.ExpiryDate = &t
		}
		if req.NextReviewDate != "" {
			t, _ := time.Parse(time.RFC3339, req.NextReviewDate)
			record.NextReviewDate = &t
		}

		if err := store.Create(record); err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to create document: %v", err))
			return
		}

		_ = activities.Append(&ActivityRecord{
			ID:         uuid.New().String(),
			DocumentID: record.ID,
			Action:     "create",
			Actor:      sess.UserID,
			Outcome:    "success",
			NewValue:   JSONAny{"title": record.Title, "category": record.Category},
		})

		writeJSON(w, http.StatusCreated, recordToDocument(record))
	}
}

// getDocumentHandler returns a handler that retrieves a single document.
// GET /api/v1alpha1/documents/{id}
func getDocumentHandler(store *DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		record, err := store.Get(id)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to get document: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}

		writeJSON(w, http.StatusOK, recordToDocument(record))
	}
}

// listDocumentsHandler returns a handler that lists documents with filtering.
// GET /api/v1alpha1/documents?status=&category=&createdBy=&pageSize=&pageToken=
func listDocumentsHandler(store *DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			Category:  r.URL.Query().Get("category"),
			CreatedBy: r.URL.Query().Get("createdBy"),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := ParseStatus(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter.Status = string(status)
		}

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.List(filter, pageSize, pageToken)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list documents: %v", err))
			return
		}

		documents := make([]Document, len(records))
		for i := range records {
			documents[i] = recordToDocument(&records[i])
		}

		writeJSON(w, http.StatusOK, DocumentList{
			Documents:     documents,
			NextPageToken: nextToken,
			TotalSize:     total,
		})
	}
}

// documentActionHandler returns a handler that dispatches document actions:
// checkout, checkin, unlock, and transition.
// POST /api/v1alpha1/documents/{id}/actions/{action}
func documentActionHandler(checkout *CheckoutService, lifecycle *LifecycleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		action := chi.URLParam(r, "action")
		sess, _ := session.FromContext(r.Context())

		var req struct {
			Params map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Params == nil {
			req.Params = make(map[string]any)
		}

		var record *DocumentRecord
		var err error

		switch action {
		case "checkout":
			record, err = checkout.CheckOut(r.Context(), id, sess)
		case "checkin":
			comment, _ := req.Params["comment"].(string)
			record, err = checkout.CheckIn(r.Context(), id, sess, comment)
		case "unlock":
			if sess.Role != "admin" {
				writeError(w, http.StatusForbidden, "unlock requires the admin role")
				return
			}
			reason, _ := req.Params["reason"].(string)
			record, err = checkout.AdminUnlock(r.Context(), id, sess, reason)
		case "transition":
			raw, _ := req.Params["status"].(string)
			target, perr := ParseStatus(raw)
			if perr != nil {
				writeError(w, http.StatusBadRequest, perr.Error())
				return
			}
			note, _ := req.Params["note"].(string)
			record, err = lifecycle.Transition(r.Context(), id, target, sess, note)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action: %s", action))
			return
		}

		if err != nil {
			writeActionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, recordToDocument(record))
	}
}

// listVersionsHandler returns a handler that lists the document version log.
// GET /api/v1alpha1/documents/{id}/versions
func listVersionsHandler(store *VersionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.ListByDocument(id, pageSize, pageToken)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list versions: %v", err))
			return
		}

		versions := make([]DocumentVersion, len(records))
		for i, rec := range records {
			versions[i] = recordToVersion(rec)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"versions":      versions,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// listActivityHandler returns a handler that lists the document audit log.
// GET /api/v1alpha1/documents/{id}/activity
func listActivityHandler(store *ActivityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.ListByDocument(id, pageSize, pageToken)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list activity: %v", err))
			return
		}

		activities := make([]Activity, len(records))
		for i, rec := range records {
			activities[i] = recordToActivity(rec)
		}

		writeJSON(w, http.StatusOK, ActivityList{
			Activities:    activities,
			NextPageToken: nextToken,
			TotalSize:     total,
		})
	}
}

// writeActionError maps domain errors to HTTP responses.
func writeActionError(w http.ResponseWriter, err error) {
	var te *TransitionError
	if errors.As(err, &te) {
		if te.Code == "DOC_NOT_FOUND" {
			writeError(w, http.StatusNotFound, te.Message)
			return
		}
		writeJSON(w, http.StatusConflict, te)
		return
	}

	var ace *AlreadyCheckedOutError
	if errors.As(err, &ace) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "already_checked_out",
			"message": ace.Error(),
			"holder":  ace.HolderID,
		})
		return
	}

	if errors.Is(err, ErrNotCheckoutOwner) {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	if errors.Is(err, ErrStaleWrite) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "stale_write",
			"message": err.Error(),
		})
		return
	}

	writeError(w, storeErrorStatus(err), err.Error())
}

// storeErrorStatus maps a store failure to the HTTP status clients should
// see. Backend outages return 503 so callers retry; everything else is a
// plain 500.
func storeErrorStatus(err error) int {
	if errors.Is(err, ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
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
