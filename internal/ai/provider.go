package ai

import (
	"context"
	"errors"
)

// ErrSwapUnsupported is returned by providers that can analyze faces but
// cannot generate composited images.
var ErrSwapUnsupported = errors.New("face swap not supported by this provider")

// Provider defines the interface for generative AI backends.
type Provider interface {
	Name() string

	// AnalyzeFace describes the face found in the image. The image is resized
	// before submission to bound request cost.
	AnalyzeFace(ctx context.Context, imageData []byte) (*FaceAnalysis, error)

	// SwapFace composites the identity from the source images onto the target
	// image and returns the generated image bytes (JPEG or PNG).
	SwapFace(ctx context.Context, sources [][]byte, target []byte, settings SwapSettings) ([]byte, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// FaceRegion is the bounding box of the detected face, in fractions of the
// image dimensions (0-1).
type FaceRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LandmarkPoint is a named facial landmark in fractional image coordinates.
type LandmarkPoint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Lighting describes the light falling on the face.
type Lighting struct {
	Direction        string `json:"direction"`         // e.g. "left", "overhead", "frontal"
	Intensity        string `json:"intensity"`         // e.g. "soft", "harsh"
	ColorTemperature string `json:"color_temperature"` // e.g. "warm", "neutral", "cool"
}

// FaceAnalysis is a snapshot description of a detected face. It is immutable
// once produced; a new analysis replaces it wholesale.
type FaceAnalysis struct {
	Region     FaceRegion      `json:"region"`
	Landmarks  []LandmarkPoint `json:"landmarks"`
	SkinTone   string          `json:"skin_tone"`
	Undertone  string          `json:"undertone"`
	Lighting   Lighting        `json:"lighting"`
	FaceScale  float64         `json:"face_scale"` // face height / image height
	Confidence float64         `json:"confidence"` // 0-1
}

// FaceScaleLock controls whether the generated face keeps the target's scale.
type FaceScaleLock string

// FaceScaleLock values.
const (
	FaceScaleAuto  FaceScaleLock = "auto"
	FaceScaleFixed FaceScaleLock = "fixed"
)

// SwapSettings is the user-tunable configuration for a swap. It is a pure
// value object read by the pipeline at dispatch time.
type SwapSettings struct {
	PreserveHair   bool          `json:"preserve_hair"`
	MatchSkinTone  bool          `json:"match_skin_tone"`
	MatchLighting  bool          `json:"match_lighting"`
	FaceScaleLock  FaceScaleLock `json:"face_scale_lock"`
	SkinSmoothness int           `json:"skin_smoothness"` // 0-10
	OutputQuality  int           `json:"output_quality"`  // 0-100
}

// DefaultSwapSettings returns the settings a fresh session starts with.
func DefaultSwapSettings() SwapSettings {
	return SwapSettings{
		PreserveHair:   true,
		MatchSkinTone:  true,
		MatchLighting:  true,
		FaceScaleLock:  FaceScaleAuto,
		SkinSmoothness: 3,
		OutputQuality:  90,
	}
}

// Clamp forces numeric fields into their valid ranges and fixes up an empty
// scale lock. Returns the corrected copy.
func (s SwapSettings) Clamp() SwapSettings {
	if s.SkinSmoothness < 0 {
		s.SkinSmoothness = 0
	}
	if s.SkinSmoothness > 10 {
		s.SkinSmoothness = 10
	}
	if s.OutputQuality < 0 {
		s.OutputQuality = 0
	}
	if s.OutputQuality > 100 {
		s.OutputQuality = 100
	}
	if s.FaceScaleLock != FaceScaleFixed {
		s.FaceScaleLock = FaceScaleAuto
	}
	return s
}
