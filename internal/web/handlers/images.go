package handlers

import (
	"archive/zip"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/session"
)

// ImagesHandler serves stored image bytes and download endpoints.
type ImagesHandler struct {
	session *session.Manager
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(sess *session.Manager) *ImagesHandler {
	return &ImagesHandler{session: sess}
}

// Serve streams the raw bytes of a stored image. Refs are content addressed,
// so responses are immutable and cached aggressively.
func (h *ImagesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ref := imagestore.Ref(chi.URLParam(r, "ref"))
	if !ref.Valid() {
		respondError(w, http.StatusBadRequest, "invalid image reference")
		return
	}

	data, err := h.session.Images().Get(ref)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			respondError(w, http.StatusNotFound, "image not found")
			return
		}
		log.Printf("failed to read image %s: %v", ref, err)
		respondError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	w.Header().Set("Content-Type", ref.ContentType())
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DownloadTarget serves the processed image of a completed target as an
// attachment.
func (h *ImagesHandler) DownloadTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.session.Target(id)
	if !ok {
		respondError(w, http.StatusNotFound, "target not found")
		return
	}
	if item.Status != session.StatusCompleted {
		respondError(w, http.StatusConflict, "target has no processed image")
		return
	}

	data, err := h.session.Images().Get(item.Processed)
	if err != nil {
		log.Printf("failed to read processed image for target %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to read processed image")
		return
	}

	w.Header().Set("Content-Type", item.Processed.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(item)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DownloadArchive streams a zip archive of every completed target's processed
// image.
func (h *ImagesHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	var completed []session.TargetItem
	for _, item := range h.session.Targets() {
		if item.Status == session.StatusCompleted {
			completed = append(completed, item)
		}
	}
	if len(completed) == 0 {
		respondError(w, http.StatusConflict, "no completed targets to download")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="face-studio-results.zip"`)
	w.WriteHeader(http.StatusOK)

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, item := range completed {
		data, err := h.session.Images().Get(item.Processed)
		if err != nil {
			log.Printf("skipping target %s in archive: %v", item.ID, err)
			continue
		}
		f, err := zw.Create(downloadName(item))
		if err != nil {
			log.Printf("failed to add target %s to archive: %v", item.ID, err)
			return
		}
		if _, err := f.Write(data); err != nil {
			log.Printf("failed to write target %s to archive: %v", item.ID, err)
			return
		}
	}
}

func downloadName(item session.TargetItem) string {
	return fmt.Sprintf("swapped-%s%s", item.ID, extensionOf(item.Processed))
}

func extensionOf(ref imagestore.Ref) string {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '.' {
			return string(ref[i:])
		}
	}
	return ""
}
