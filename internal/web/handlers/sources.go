package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/session"
)

// analysisTimeout bounds a background face analysis call.
const analysisTimeout = 2 * time.Minute

// SourcesHandler handles source identity endpoints.
type SourcesHandler struct {
	session  *session.Manager
	provider ai.Provider
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(sess *session.Manager, provider ai.Provider) *SourcesHandler {
	return &SourcesHandler{
		session:  sess,
		provider: provider,
	}
}

// SourcesResponse represents the source identity state.
type SourcesResponse struct {
	Images   []imagestore.Ref `json:"images"`
	Analysis *ai.FaceAnalysis `json:"analysis,omitempty"`
}

// List returns the source identity images and the bound analysis.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SourcesResponse{
		Images:   h.session.Sources(),
		Analysis: h.session.Analysis(),
	})
}

// Upload accepts up to three source face images via multipart form field
// "files". Duplicates and images beyond capacity are dropped, not errors.
// Uploading the first image kicks off a background face analysis.
func (h *SourcesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	images, err := readUploadedImages(r, "files")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	added := 0
	dropped := 0
	analyze := false
	for _, data := range images {
		_, ok, becamePrimary, err := h.session.AddSourceImage(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			dropped++
			continue
		}
		added++
		if becamePrimary {
			analyze = true
		}
	}

	if analyze {
		go h.analyzeInBackground()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"added":   added,
		"dropped": dropped,
		"images":  h.session.Sources(),
	})
}

// analyzeInBackground analyzes the primary source image. Analysis is advisory
// display data, so failures are logged and forgotten.
func (h *SourcesHandler) analyzeInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	if err := h.session.EnsureAnalysis(ctx, h.provider); err != nil {
		log.Printf("background face analysis failed: %v", err)
	}
}

// Analyze runs face analysis for the primary source image synchronously and
// returns the result. Cached results are reused.
func (h *SourcesHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if len(h.session.Sources()) == 0 {
		respondError(w, http.StatusBadRequest, "no source images uploaded")
		return
	}

	if err := h.session.EnsureAnalysis(r.Context(), h.provider); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.session.Analysis())
}

// Remove deletes the source image at the given index. Removing the primary
// image clears the bound analysis.
func (h *SourcesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid source index")
		return
	}

	if !h.session.RemoveSource(index) {
		respondError(w, http.StatusNotFound, "source index out of range")
		return
	}

	respondJSON(w, http.StatusOK, SourcesResponse{
		Images:   h.session.Sources(),
		Analysis: h.session.Analysis(),
	})
}

// Clear removes all source images and the analysis.
func (h *SourcesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.session.ClearSources()
	respondJSON(w, http.StatusOK, SourcesResponse{Images: []imagestore.Ref{}})
}
