package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/session"
)

// SettingsHandler handles swap settings endpoints.
type SettingsHandler struct {
	session *session.Manager
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(sess *session.Manager) *SettingsHandler {
	return &SettingsHandler{session: sess}
}

// Get returns the current swap settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Settings())
}

// Update replaces the swap settings. Numeric fields are clamped to their
// valid ranges; the clamped result is returned. Edits made while a batch is
// running apply to items that have not been dispatched yet.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var settings ai.SwapSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	respondJSON(w, http.StatusOK, h.session.SetSettings(settings))
}
