package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/config"
)

// AI provider names accepted by the --provider flag.
const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
)

// createAIProvider builds the requested AI provider from config. Gemini is
// the only provider that can generate swapped images; OpenAI covers face
// analysis only.
func createAIProvider(ctx context.Context, cfg *config.Config, name string) (ai.Provider, error) {
	switch name {
	case providerGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		analysis := cfg.GetModelPricing("gemini-2.5-flash")
		image := cfg.GetModelPricing("gemini-2.5-flash-image")
		provider, err := ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey,
			ai.RequestPricing{Input: analysis.Standard.Input, Output: analysis.Standard.Output},
			ai.RequestPricing{Input: image.Standard.Input, Output: image.Standard.Output},
		)
		if err != nil {
			return nil, fmt.Errorf("creating Gemini provider: %w", err)
		}
		return provider, nil
	case providerOpenAI:
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		pricing := cfg.GetModelPricing("gpt-4.1-mini")
		provider, err := ai.NewOpenAIProvider(cfg.OpenAI.Token,
			ai.RequestPricing{Input: pricing.Standard.Input, Output: pricing.Standard.Output},
		)
		if err != nil {
			return nil, fmt.Errorf("creating OpenAI provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
