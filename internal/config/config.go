package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Studio   StudioConfig
	Database DatabaseConfig
	Prices   PricesConfig
}

type GeminiConfig struct {
	APIKey string
}

type OpenAIConfig struct {
	Token string
}

type StudioConfig struct {
	DataDir   string // directory for uploaded and generated images (default ~/.face-studio)
	StorePath string // path to the JSON preferences file (default <DataDir>/preferences.json)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; when empty the file store is used
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Standard RequestPricing `yaml:"standard"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// defaultDataDir resolves the image/preferences directory when
// FACE_STUDIO_DATA_DIR is unset.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".face-studio"
	}
	return filepath.Join(home, ".face-studio")
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	dataDir := os.Getenv("FACE_STUDIO_DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	storePath := os.Getenv("FACE_STUDIO_STORE_PATH")
	if storePath == "" {
		storePath = filepath.Join(dataDir, "preferences.json")
	}

	return &Config{
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Studio: StudioConfig{
			DataDir:   dataDir,
			StorePath: storePath,
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}
