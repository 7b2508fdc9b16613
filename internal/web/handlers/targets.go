package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-studio/internal/session"
)

// TargetsHandler handles target collection endpoints.
type TargetsHandler struct {
	session *session.Manager
}

// NewTargetsHandler creates a new targets handler.
func NewTargetsHandler(sess *session.Manager) *TargetsHandler {
	return &TargetsHandler{session: sess}
}

// List returns all target items.
func (h *TargetsHandler) List(w http.ResponseWriter, r *http.Request) {
	targets := h.session.Targets()
	if targets == nil {
		targets = []session.TargetItem{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"targets": targets,
	})
}

// Get returns one target item by ID.
func (h *TargetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.session.Target(id)
	if !ok {
		respondError(w, http.StatusNotFound, "target not found")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Upload accepts target images via multipart form field "files". There is no
// cap on the number of target items.
func (h *TargetsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	images, err := readUploadedImages(r, "files")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]session.TargetItem, 0, len(images))
	for _, data := range images {
		ref, err := h.session.Images().Put(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		items = append(items, h.session.AddTarget(ref))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"added":   len(items),
		"targets": items,
	})
}

// Remove deletes a target item. Items that are mid-swap cannot be removed.
func (h *TargetsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.session.RemoveTarget(id); err != nil {
		switch {
		case errors.Is(err, session.ErrTargetNotFound):
			respondError(w, http.StatusNotFound, "target not found")
		case errors.Is(err, session.ErrTargetBusy):
			respondError(w, http.StatusConflict, "target is being processed")
		default:
			log.Printf("failed to remove target %s: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusInternalServerError, "failed to remove target")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}
