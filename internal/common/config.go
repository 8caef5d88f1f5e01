package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sunghoon-yu/tradedocs/constants"
)

// Config holds all process configuration. It is built once at startup
// and passed by reference; nothing reads ambient state after that.
type Config struct {
	Batch       BatchConfig       `yaml:"batch"`
	Classify    ClassifyConfig    `yaml:"classify"`
	Orchestrate OrchestrateConfig `yaml:"orchestrate"`
	Merge       MergeConfig       `yaml:"merge"`
	Engines     []EngineSpec      `yaml:"engines"`
	Claude      ClaudeConfig      `yaml:"claude"`
	DocAI       DocAIConfig       `yaml:"docai"`
	OCR         OCRConfig         `yaml:"ocr"`
}

// BatchConfig controls the file-level worker pool.
type BatchConfig struct {
	Workers      int           `yaml:"workers"`
	Parallel     bool          `yaml:"parallel"`
	FileDeadline time.Duration `yaml:"file_deadline"`
}

// ClassifyConfig holds the classifier and segmenter thresholds.
type ClassifyConfig struct {
	MinConfidence         float32 `yaml:"min_confidence"`         // below this a page is generic
	EscalationMargin      float32 `yaml:"escalation_margin"`      // top-two gap that triggers the backend
	ContinuationThreshold float32 `yaml:"continuation_threshold"` // below this a boundary page inherits its predecessor
	HeuristicCap          float32 `yaml:"heuristic_cap"`          // ceiling for keyword-only confidence
}

// OrchestrateConfig holds the fallback chain policy.
type OrchestrateConfig struct {
	AcceptConfidence float32       `yaml:"accept_confidence"` // acceptance floor for a Success
	CrossValidate    int           `yaml:"cross_validate"`    // run top-N engines regardless of first acceptance; 0 = off
	MinTextLength    int           `yaml:"min_text_length"`   // a shorter text yield counts as a failed attempt
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay    time.Duration `yaml:"retry_max_delay"`
}

// MergeConfig holds the field merge heuristics.
type MergeConfig struct {
	AgreementBonus  float32 `yaml:"agreement_bonus"`
	DisputedCeiling float32 `yaml:"disputed_ceiling"`
}

// EngineSpec is the immutable configuration for one extraction engine.
type EngineSpec struct {
	ID           string                       `yaml:"id"`
	Rank         int                          `yaml:"rank"`
	CostWeight   float64                      `yaml:"cost_weight"`
	Capabilities []constants.EngineCapability `yaml:"capabilities"`
	Timeout      time.Duration                `yaml:"timeout"`
	MaxRetries   int                          `yaml:"max_retries"`
}

// ClaudeConfig configures the Anthropic-backed engine and classifier backend.
type ClaudeConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// DocAIConfig configures the hosted document digitization engine.
type DocAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// OCRConfig configures the local OCR toolchain.
type OCRConfig struct {
	Pdftoppm  string `yaml:"pdftoppm"`
	Tesseract string `yaml:"tesseract"`
	Lang      string `yaml:"lang"`
	DPI       int    `yaml:"dpi"`
	MaxPages  int    `yaml:"max_pages"`
}

// LoadConfig builds the configuration from defaults, an optional YAML
// file, and environment variable overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Env overrides for secrets and toolchain locations only.
	cfg.Claude.APIKey = getEnv("ANTHROPIC_API_KEY", cfg.Claude.APIKey)
	cfg.DocAI.APIKey = getEnv("DOCAI_API_KEY", cfg.DocAI.APIKey)
	cfg.DocAI.BaseURL = getEnv("DOCAI_BASE_URL", cfg.DocAI.BaseURL)
	cfg.OCR.Tesseract = getEnv("TESSERACT_BIN", cfg.OCR.Tesseract)
	cfg.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", cfg.OCR.Pdftoppm)
	cfg.Batch.Workers = getEnvAsInt("BATCH_WORKERS", cfg.Batch.Workers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Batch: BatchConfig{
			Workers:      4,
			Parallel:     true,
			FileDeadline: 5 * time.Minute,
		},
		Classify: ClassifyConfig{
			MinConfidence:         0.30,
			EscalationMargin:      0.10,
			ContinuationThreshold: 0.35,
			HeuristicCap:          0.90,
		},
		Orchestrate: OrchestrateConfig{
			AcceptConfidence: 0.50,
			CrossValidate:    0,
			MinTextLength:    20,
			RetryBaseDelay:   500 * time.Millisecond,
			RetryMaxDelay:    8 * time.Second,
		},
		Merge: MergeConfig{
			AgreementBonus:  0.05,
			DisputedCeiling: 0.60,
		},
		Engines: []EngineSpec{
			{
				ID:           "docai",
				Rank:         1,
				CostWeight:   1.0,
				Capabilities: []constants.EngineCapability{constants.CapTextPDF, constants.CapScanned, constants.CapTables},
				Timeout:      30 * time.Second,
				MaxRetries:   2,
			},
			{
				ID:           "claude",
				Rank:         2,
				CostWeight:   2.0,
				Capabilities: []constants.EngineCapability{constants.CapTextPDF, constants.CapTables},
				Timeout:      45 * time.Second,
				MaxRetries:   2,
			},
			{
				ID:           "pdftext",
				Rank:         3,
				CostWeight:   0.1,
				Capabilities: []constants.EngineCapability{constants.CapTextPDF},
				Timeout:      10 * time.Second,
				MaxRetries:   0,
			},
			{
				ID:           "tesseract",
				Rank:         4,
				CostWeight:   0.5,
				Capabilities: []constants.EngineCapability{constants.CapScanned},
				Timeout:      60 * time.Second,
				MaxRetries:   1,
			},
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		DocAI: DocAIConfig{
			BaseURL: "https://api.upstage.ai/v1/document-digitization",
		},
		OCR: OCRConfig{
			Pdftoppm:  "pdftoppm",
			Tesseract: "tesseract",
			Lang:      "kor+eng",
			DPI:       300,
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if len(c.Engines) == 0 {
		return NewAppError("CONFIG_ERROR", "at least one engine must be configured", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(c.Engines))
	for _, e := range c.Engines {
		if e.ID == "" {
			return NewAppError("CONFIG_ERROR", "engine id is required", ErrInvalidInput)
		}
		if _, dup := seen[e.ID]; dup {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("duplicate engine id %q", e.ID), ErrInvalidInput)
		}
		seen[e.ID] = struct{}{}
		if e.Timeout <= 0 {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("engine %q needs a positive timeout", e.ID), ErrInvalidInput)
		}
		if e.MaxRetries < 0 {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("engine %q has negative max_retries", e.ID), ErrInvalidInput)
		}
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "batch workers must be positive", ErrInvalidInput)
	}
	if c.Merge.DisputedCeiling <= 0 || c.Merge.DisputedCeiling > 1 {
		return NewAppError("CONFIG_ERROR", "disputed ceiling must be in (0,1]", ErrInvalidInput)
	}
	if c.Classify.MinConfidence < 0 || c.Classify.MinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "classify min_confidence must be in [0,1]", ErrInvalidInput)
	}
	return nil
}
