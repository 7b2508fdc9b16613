package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-studio/internal/config"
	"github.com/kozaktomas/face-studio/internal/session"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config   *config.Config
	provider string
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, activeProvider string) *ConfigHandler {
	return &ConfigHandler{
		config:   cfg,
		provider: activeProvider,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Providers       []ProviderInfo `json:"providers"`
	ActiveProvider  string         `json:"active_provider"`
	MaxSourceImages int            `json:"max_source_images"`
}

// ProviderInfo represents information about an AI provider
type ProviderInfo struct {
	Name          string `json:"name"`
	Available     bool   `json:"available"`
	SupportsSwap  bool   `json:"supports_swap"`
	AnalysisModel string `json:"analysis_model,omitempty"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:          "gemini",
			Available:     h.config.Gemini.APIKey != "",
			SupportsSwap:  true,
			AnalysisModel: "gemini-2.5-flash",
		},
		{
			Name:          "openai",
			Available:     h.config.OpenAI.Token != "",
			SupportsSwap:  false,
			AnalysisModel: "gpt-4.1-mini",
		},
	}

	response := ConfigResponse{
		Providers:       providers,
		ActiveProvider:  h.provider,
		MaxSourceImages: session.MaxSourceImages,
	}

	respondJSON(w, http.StatusOK, response)
}
