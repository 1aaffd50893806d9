package docs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuvault/docuvault/pkg/session"
)

// ObjectStore is the file storage collaborator. Satisfied by storage.MinioStore.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// maxUploadBytes bounds a single document file upload.
const maxUploadBytes = 128 << 20

// downloadURLExpiry is how long presigned download links stay valid.
const downloadURLExpiry = 15 * time.Minute

// uploadFileHandler returns a handler that stores the document's file content
// in object storage and records the file metadata on the document. The caller
// must hold the checkout; uploading is part of an edit cycle.
// PUT /api/v1alpha1/documents/{id}/file
func uploadFileHandler(store *DocumentStore, objects ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, _ := session.FromContext(r.Context())

		doc, err := store.Get(id)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to get document: %v", err))
			return
		}
		if doc == nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		if doc.CheckoutBy != sess.UserID {
			writeError(w, http.StatusForbidden, "document must be checked out by the uploader")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart body: %v", err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing 'file' form field")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key := path.Join("documents", doc.ID, uuid.New().String()+path.Ext(header.Filename))
		if err := objects.Put(r.Context(), key, file, header.Size, contentType); err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to store file: %v", err))
			return
		}

		expected := doc.Version
		doc.FileName = header.Filename
		doc.MimeType = contentType
		doc.SizeBytes = header.Size
		doc.StoragePath = key

		if err := store.UpdateCAS(doc, expected); err != nil {
			writeActionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, recordToDocument(doc))
	}
}

// downloadURLHandler returns a handler that issues a short-lived presigned
// download URL for the document's stored file.
// GET /api/v1alpha1/documents/{id}/file
func downloadURLHandler(store *DocumentStore, objects ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := store.Get(id)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to get document: %v", err))
			return
		}
		if doc == nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		if doc.StoragePath == "" {
			writeError(w, http.StatusNotFound, "document has no stored file")
			return
		}

		url, err := objects.PresignGet(r.Context(), doc.StoragePath, downloadURLExpiry)
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to presign download: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"url":      url,
			"fileName": doc.FileName,
			"mimeType": doc.MimeType,
		})
	}
}
