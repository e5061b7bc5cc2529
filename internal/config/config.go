package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-ingest/internal/constants"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

type Config struct {
	Drive    DriveConfig
	Vision   VisionConfig
	Store    StoreConfig
	Pipeline PipelineConfig
	Taxonomy TaxonomyConfig
}

type DriveConfig struct {
	APIKey string
}

type VisionConfig struct {
	Provider       string // "gemini" (default) or "openai"
	GeminiAPIKey   string
	OpenAIToken    string
	CollectionPath string // path to the local face collection file (optional)
}

type StoreConfig struct {
	Path       string // root directory for blobs and metadata
	BaseURL    string // public base URL for generating image locators (e.g. http://localhost:8080)
	Secret     string // HMAC secret for signing locators
	LocatorTTL int    // locator lifetime in seconds
}

type PipelineConfig struct {
	Concurrency int
}

// TaxonomyConfig constrains the values vision providers may return for
// face attributes. Unknown emotions are dropped, unknown genders mapped
// to "Unknown".
type TaxonomyConfig struct {
	Emotions []string `yaml:"emotions"`
	Genders  []string `yaml:"genders"`
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

func Load() *Config {
	var taxonomy TaxonomyConfig
	if err := yaml.Unmarshal(taxonomyYAML, &taxonomy); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded taxonomy.yaml: " + err.Error())
	}

	provider := os.Getenv("VISION_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}

	storePath := os.Getenv("STORE_PATH")
	if storePath == "" {
		storePath = "data"
	}

	return &Config{
		Drive: DriveConfig{
			APIKey: os.Getenv("DRIVE_API_KEY"),
		},
		Vision: VisionConfig{
			Provider:       provider,
			GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
			OpenAIToken:    os.Getenv("OPENAI_TOKEN"),
			CollectionPath: os.Getenv("FACE_COLLECTION_PATH"),
		},
		Store: StoreConfig{
			Path:       storePath,
			BaseURL:    os.Getenv("STORE_BASE_URL"),
			Secret:     os.Getenv("STORE_SECRET"),
			LocatorTTL: envInt("STORE_LOCATOR_TTL", constants.DefaultLocatorTTL),
		},
		Pipeline: PipelineConfig{
			Concurrency: envInt("PIPELINE_CONCURRENCY", constants.DefaultConcurrency),
		},
		Taxonomy: taxonomy,
	}
}
