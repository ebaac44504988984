// Package config holds the pipeline settings: an optional YAML file overlaid with
// environment variables. Core packages never read the environment themselves; the
// services layer turns a Config into explicit constructor parameters.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/competencymatrix/internal/gcp"
)

// Synthesizer providers.
const (
	ProviderVertex    = gcp.ProviderVertex
	ProviderGeminiAPI = gcp.ProviderGeminiAPI
)

type Config struct {
	GCP        GCPConfig        `yaml:"gcp"`
	Synth      SynthConfig      `yaml:"synth"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Template   TemplateConfig   `yaml:"template"`
	Storage    StorageConfig    `yaml:"storage"`
	Firestore  FirestoreConfig  `yaml:"firestore"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type GCPConfig struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
}

type SynthConfig struct {
	Provider        string `yaml:"provider"` // vertex or gemini-api
	APIKey          string `yaml:"api_key"`
	ExtractorModel  string `yaml:"extractor_model"`
	CompetencyModel string `yaml:"competency_model"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

type ExtractionConfig struct {
	ScannedTextThreshold int     `yaml:"scanned_text_threshold"`
	VisionDPI            float64 `yaml:"vision_dpi"`
	RulebookPath         string  `yaml:"rulebook_path"`
}

type TemplateConfig struct {
	Path       string `yaml:"path"`
	LayoutName string `yaml:"layout_name"`
	Strict     bool   `yaml:"strict"`
}

type StorageConfig struct {
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	SignedURL     bool          `yaml:"signed_url"`
	SignedURLTTL  time.Duration `yaml:"signed_url_ttl"`
	SnapshotJobs  bool          `yaml:"snapshot_jobs"`
	SnapshotsPath string        `yaml:"snapshots_path"`
}

type FirestoreConfig struct {
	Collection        string `yaml:"collection"`
	SegmentCollection string `yaml:"segment_collection"`
}

type WorkflowConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		GCP: GCPConfig{
			Location: "us-central1",
		},
		Synth: SynthConfig{
			Provider:        ProviderVertex,
			ExtractorModel:  "gemini-2.5-flash",
			CompetencyModel: "gemini-2.5-flash",
			MaxAttempts:     2,
		},
		Extraction: ExtractionConfig{
			ScannedTextThreshold: 200,
			VisionDPI:            200,
		},
		Template: TemplateConfig{
			Path:       "template.pptx",
			LayoutName: "Competency_Layout",
			Strict:     true,
		},
		Storage: StorageConfig{
			Prefix:        "competency-decks",
			SignedURLTTL:  time.Hour,
			SnapshotsPath: "job-payloads",
		},
		Firestore: FirestoreConfig{
			Collection:        "documents",
			SegmentCollection: "segment-cache",
		},
		Workflow: WorkflowConfig{
			Location: "us-central1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads an optional YAML file over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// FromEnv is Load without a file.
func FromEnv() (*Config, error) {
	return Load("")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Synth.Provider != ProviderVertex && c.Synth.Provider != ProviderGeminiAPI {
		return fmt.Errorf("invalid synth provider: %q", c.Synth.Provider)
	}
	if c.Synth.MaxAttempts < 1 {
		return fmt.Errorf("synth max_attempts must be at least 1, got %d", c.Synth.MaxAttempts)
	}
	if c.Extraction.ScannedTextThreshold < 0 {
		return fmt.Errorf("scanned_text_threshold must not be negative")
	}
	if c.Extraction.VisionDPI <= 0 {
		return fmt.Errorf("vision_dpi must be positive")
	}
	if c.Storage.SignedURL && c.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("signed_url_ttl must be positive when signed URLs are enabled")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// SynthEnabled reports whether a synthesizer target is configured. Without one the
// extraction and competency steps run in degraded mode.
func (c *Config) SynthEnabled() bool {
	switch c.Synth.Provider {
	case ProviderGeminiAPI:
		return c.Synth.APIKey != ""
	default:
		return c.GCP.ProjectID != ""
	}
}

// ObjectPrefix returns the storage prefix without surrounding slashes.
func (c *Config) ObjectPrefix() string {
	return strings.Trim(c.Storage.Prefix, "/")
}

func applyEnvOverrides(cfg *Config) {
	cfg.GCP.ProjectID = firstEnv(cfg.GCP.ProjectID, "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "PROJECT_ID")
	cfg.GCP.Location = firstEnv(cfg.GCP.Location, "GOOGLE_CLOUD_LOCATION", "GCP_LOCATION")

	cfg.Synth.Provider = firstEnv(cfg.Synth.Provider, "SYNTH_PROVIDER")
	cfg.Synth.APIKey = firstEnv(cfg.Synth.APIKey, "GEMINI_API_KEY")
	cfg.Synth.ExtractorModel = firstEnv(cfg.Synth.ExtractorModel, "EXTRACTOR_MODEL")
	cfg.Synth.CompetencyModel = firstEnv(cfg.Synth.CompetencyModel, "COMPETENCY_MODEL")
	cfg.Synth.MaxAttempts = envInt("SYNTH_MAX_ATTEMPTS", cfg.Synth.MaxAttempts)

	cfg.Extraction.ScannedTextThreshold = envInt("SCANNED_TEXT_THRESHOLD", cfg.Extraction.ScannedTextThreshold)
	cfg.Extraction.RulebookPath = firstEnv(cfg.Extraction.RulebookPath, "RULEBOOK_PDF_PATH")

	cfg.Template.Path = firstEnv(cfg.Template.Path, "TEMPLATE_PPTX")
	cfg.Template.LayoutName = firstEnv(cfg.Template.LayoutName, "TEMPLATE_LAYOUT")
	cfg.Template.Strict = envBool("TEMPLATE_STRICT", cfg.Template.Strict)

	cfg.Storage.Bucket = firstEnv(cfg.Storage.Bucket, "GCS_BUCKET_NAME")
	cfg.Storage.Prefix = firstEnv(cfg.Storage.Prefix, "GCS_PREFIX")
	cfg.Storage.SignedURL = envBool("GCS_RETURN_SIGNED_URL", cfg.Storage.SignedURL)
	if secs := envInt("GCS_SIGNED_URL_TTL_SECONDS", 0); secs > 0 {
		cfg.Storage.SignedURLTTL = time.Duration(secs) * time.Second
	}

	cfg.Firestore.Collection = firstEnv(cfg.Firestore.Collection, "FIRESTORE_COLLECTION")
	cfg.Firestore.SegmentCollection = firstEnv(cfg.Firestore.SegmentCollection, "FIRESTORE_SEGMENT_COLLECTION")
	cfg.Workflow.ID = firstEnv(cfg.Workflow.ID, "WORKFLOW_ID")
	cfg.Workflow.Location = firstEnv(cfg.Workflow.Location, "WORKFLOW_LOCATION")

	cfg.Logging.Level = firstEnv(cfg.Logging.Level, "LOG_LEVEL")
	cfg.Logging.Format = firstEnv(cfg.Logging.Format, "LOG_FORMAT")
}

// firstEnv returns the first non-empty variable among keys, or fallback.
func firstEnv(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(gcp.GetEnv(k, "")); v != "" {
			return v
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(gcp.GetEnv(key, ""))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(gcp.GetEnv(key, ""))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
