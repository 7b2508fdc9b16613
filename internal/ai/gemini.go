package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	geminiModel      = "gemini-2.5-flash"
	geminiImageModel = "gemini-2.5-flash-image"
)

// GeminiProvider analyzes faces with the Gemini flash model and generates
// swapped images with the Gemini image model.
type GeminiProvider struct {
	client          *genai.Client
	usage           Usage
	analysisPricing RequestPricing // per 1M tokens
	imagePricing    RequestPricing // per 1M tokens
}

func NewGeminiProvider(ctx context.Context, apiKey string, analysisPricing, imagePricing RequestPricing) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:          client,
		analysisPricing: analysisPricing,
		imagePricing:    imagePricing,
	}, nil
}

func (p *GeminiProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *GeminiProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *GeminiProvider) trackUsage(inputTokens, outputTokens int32, pricing RequestPricing) {
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
	p.usage.TotalCost += float64(inputTokens) / 1_000_000 * pricing.Input
	p.usage.TotalCost += float64(outputTokens) / 1_000_000 * pricing.Output
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

// AnalyzeFace asks Gemini for a structured description of the face in the image.
func (p *GeminiProvider) AnalyzeFace(ctx context.Context, imageData []byte) (*FaceAnalysis, error) {
	const maxRetries = 3

	// Resize image to bound request cost
	resizedData, err := ResizeImage(imageData, MaxSubmitSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildFaceAnalysisPrompt()},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		// Track usage
		if result.UsageMetadata != nil {
			p.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount, p.analysisPricing)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no analysis returned")
		}
		lastResponse = content

		analysis, err := parseFaceAnalysis(content)
		if err != nil {
			lastError = err

			// Add model response and error feedback to contents for retry
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Remember to escape quotes inside strings with backslash.", err)}},
				},
			)
			continue
		}

		return analysis, nil
	}

	return nil, fmt.Errorf("failed to parse analysis JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

// SwapFace sends the source identity images, the target image and a directive
// built from the settings, and returns the first generated image.
func (p *GeminiProvider) SwapFace(ctx context.Context, sources [][]byte, target []byte, settings SwapSettings) ([]byte, error) {
	if len(sources) == 0 {
		return nil, errors.New("at least one source image is required")
	}

	parts := []*genai.Part{
		{Text: buildSwapDirective(len(sources), settings.Clamp())},
	}

	for i, src := range sources {
		resized, err := ResizeImage(src, MaxSubmitSize)
		if err != nil {
			return nil, fmt.Errorf("failed to resize source image %d: %w", i, err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}})
	}

	resizedTarget, err := ResizeImage(target, MaxSubmitSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize target image: %w", err)
	}
	parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: resizedTarget, MIMEType: "image/jpeg"}})

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	result, err := p.client.Models.GenerateContent(ctx, geminiImageModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	// Track usage
	if result.UsageMetadata != nil {
		p.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount, p.imagePricing)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, errors.New("no image generated")
}
