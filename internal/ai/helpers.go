package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/face_analysis.txt
var faceAnalysisPrompt string

// buildFaceAnalysisPrompt returns the embedded face analysis prompt.
func buildFaceAnalysisPrompt() string {
	return faceAnalysisPrompt
}

// buildSwapDirective builds the natural-language instruction for the swap
// engine from the current settings. This is shared across all AI providers.
func buildSwapDirective(numSources int, settings SwapSettings) string {
	var b strings.Builder
	b.WriteString("Replace the face of the person in the last image with the face of the person ")
	if numSources > 1 {
		fmt.Fprintf(&b, "shown in the first %d reference images (same person from different angles). ", numSources)
	} else {
		b.WriteString("shown in the first reference image. ")
	}
	b.WriteString("Keep the target photo's composition, pose, clothing and background untouched.\n")

	if settings.PreserveHair {
		b.WriteString("- Keep the target person's hair exactly as it is.\n")
	} else {
		b.WriteString("- The reference person's hairstyle may carry over.\n")
	}
	if settings.MatchSkinTone {
		b.WriteString("- Blend the inserted face to match the target person's skin tone.\n")
	}
	if settings.MatchLighting {
		b.WriteString("- Relight the inserted face to match the direction, intensity and color temperature of the target photo's lighting.\n")
	}
	if settings.FaceScaleLock == FaceScaleFixed {
		b.WriteString("- Keep the face exactly at the scale of the original face in the target photo.\n")
	} else {
		b.WriteString("- Scale the face naturally to fit the target person's head.\n")
	}
	fmt.Fprintf(&b, "- Skin smoothness level: %d of 10 (0 keeps every pore, 10 is heavily retouched).\n", settings.SkinSmoothness)
	fmt.Fprintf(&b, "- Output fidelity: %d of 100.\n", settings.OutputQuality)
	b.WriteString("Return only the composited image.")
	return b.String()
}

// parseFaceAnalysis decodes the model's JSON answer and normalizes the tone
// and lighting labels. Shared across all AI providers.
func parseFaceAnalysis(content string) (*FaceAnalysis, error) {
	var analysis FaceAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, err
	}

	analysis.SkinTone = NormalizeLabel(analysis.SkinTone)
	analysis.Undertone = NormalizeLabel(analysis.Undertone)
	analysis.Lighting.Direction = NormalizeLabel(analysis.Lighting.Direction)
	analysis.Lighting.Intensity = NormalizeLabel(analysis.Lighting.Intensity)
	analysis.Lighting.ColorTemperature = NormalizeLabel(analysis.Lighting.ColorTemperature)

	if analysis.Confidence < 0 {
		analysis.Confidence = 0
	}
	if analysis.Confidence > 1 {
		analysis.Confidence = 1
	}

	return &analysis, nil
}
