package api

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"licensing-ledger/internal/domain"
)

var supportedUploadTypes = []string{
	"application/pdf",
	"application/zip",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.oasis.opendocument.text",
	"image/png",
	"image/jpeg",
	"image/gif",
	"text/plain",
}

// isSupportedUpload accepts PDFs, images, zip and office archives and
// non-blank UTF-8 text.
func isSupportedUpload(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return false
	}
	detected := mimetype.Detect(body)
	if !mimetype.EqualsAny(detected.String(), supportedUploadTypes...) {
		return false
	}
	if detected.Is("text/plain") {
		return utf8.Valid(body)
	}
	return true
}

// UploadTemporaryDocument stores a file under its collection prefix. The
// collection row is created by the event handler once the object lands.
func (h *Handler) UploadTemporaryDocument(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "document store not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(h.cfg.AllowedUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart payload"})
		return
	}

	collectionID := uuid.New()
	if raw := r.FormValue("collection_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid collection_id"})
			return
		}
		collectionID = id
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file form field is required"})
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, h.cfg.AllowedUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file"})
		return
	}
	if int64(len(body)) > h.cfg.AllowedUploadBytes {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file exceeds size limit"})
		return
	}
	if !isSupportedUpload(body) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported file type"})
		return
	}

	objectKey := domain.TemporaryObjectKey(collectionID, header.Filename)
	if err := h.docs.PutDocument(ctx, objectKey, body); err != nil {
		h.logger.WithError(err).WithField("object_key", objectKey).Error("upload temporary document")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to upload file"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"temporary_document_collection_id": collectionID.String(),
		"object_key":                       objectKey,
	})
}

func (h *Handler) GetTemporaryCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionParam(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetTemporaryCollection(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) PurgeTemporaryCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.PurgeTemporaryCollection(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadTemporaryDocument serves a registered upload of the collection by
// its file name.
func (h *Handler) DownloadTemporaryDocument(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "document store not configured"})
		return
	}
	id, ok := collectionParam(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetTemporaryCollection(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	name := chi.URLParam(r, "filename")
	var doc *domain.TemporaryDocument
	for i := range c.Documents {
		if c.Documents[i].Filename() == name {
			doc = &c.Documents[i]
			break
		}
	}
	if doc == nil {
		h.writeError(w, errors.Wrapf(domain.ErrNotFound, "document %q in collection %s", name, id))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	body, err := h.docs.GetDocument(ctx, doc.Path)
	if err != nil {
		h.logger.WithError(err).WithField("object_key", doc.Path).Error("download temporary document")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to read file"})
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(body).String())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func collectionParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "collectionId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid collectionId"})
		return uuid.Nil, false
	}
	return id, true
}
