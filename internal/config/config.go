package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	UploadDir     string `toml:"upload_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
	APIToken      string `toml:"api_token"`
	PublicBaseURL string `toml:"public_base_url"`
}

// LLM contains shared LLM connection settings used by the stylist and the forge.
type LLM struct {
	// Provider selects the wire protocol: "openai" (any chat-completions
	// compatible endpoint), "anthropic", or "gemini".
	Provider       string   `toml:"provider"`
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	FallbackModels []string `toml:"fallback_models"`
	Referer        string   `toml:"referer"`
	Title          string   `toml:"title"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RetryAttempts  int      `toml:"retry_attempts"`
}

// Stylist contains settings for image descriptions and outfit suggestions.
type Stylist struct {
	Model        string  `toml:"model"`
	AnalyzeModel string  `toml:"analyze_model"`
	Temperature  float64 `toml:"temperature"`
}

// Uploads contains limits for clothing photo uploads.
type Uploads struct {
	MaxBytes          int64    `toml:"max_bytes"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// ImageSearch contains credentials for the inspiration image search proxy.
type ImageSearch struct {
	PinterestAPIKey  string `toml:"pinterest_api_key"`
	UnsplashAPIKey   string `toml:"unsplash_api_key"`
	PinterestBaseURL string `toml:"pinterest_base_url"`
	UnsplashBaseURL  string `toml:"unsplash_base_url"`
	Limit            int    `toml:"limit"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// Forge contains configuration for the code generation pipeline.
type Forge struct {
	OutputDir             string   `toml:"output_dir"`
	Prompt                string   `toml:"prompt"`
	Subject               string   `toml:"subject"`
	GeneratorModel        string   `toml:"generator_model"`
	ReviewerModel         string   `toml:"reviewer_model"`
	AggregatorModel       string   `toml:"aggregator_model"`
	AnalystModel          string   `toml:"analyst_model"`
	MaxIterations         int      `toml:"max_iterations"`
	Variants              int      `toml:"variants"`
	Concurrency           int      `toml:"concurrency"`
	ReviewerPrompts       []string `toml:"reviewer_prompts"`
	StripFences           bool     `toml:"strip_fences"`
	GeneratorTemperature  float64  `toml:"generator_temperature"`
	ReviewerTemperature   float64  `toml:"reviewer_temperature"`
	// ConvergenceSimilarity stops the iterative loop once successive
	// aggregates score at least this cosine similarity. 1 means identical.
	ConvergenceSimilarity float64  `toml:"convergence_similarity"`
	// LogRuns mirrors each run's log into <log_dir>/forge/<run_id>.log.
	LogRuns               bool     `toml:"log_runs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Atelier.
//
// Configuration sections by subsystem:
//   - Paths: directories, API bind address and token
//   - LLM: provider connection shared by stylist and forge
//   - Stylist: image description and outfit suggestion models
//   - Uploads: photo size and type limits
//   - ImageSearch: Pinterest / Unsplash credentials
//   - Forge: generate/review/aggregate pipeline
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	LLM         LLM         `toml:"llm"`
	Stylist     Stylist     `toml:"stylist"`
	Uploads     Uploads     `toml:"uploads"`
	ImageSearch ImageSearch `toml:"image_search"`
	Forge       Forge       `toml:"forge"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("atelier.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite catalogue database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "atelier.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved connection settings for one LLM consumer.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	FallbackModels []string
	Referer        string
	Title          string
	TimeoutSeconds int
	RetryAttempts  int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	fallbacks := make([]string, len(c.LLM.FallbackModels))
	copy(fallbacks, c.LLM.FallbackModels)
	return LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		FallbackModels: fallbacks,
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		RetryAttempts:  c.LLM.RetryAttempts,
	}
}

// StylistLLM returns the LLM settings for outfit suggestions.
// Falls back to [llm] settings when the stylist model is not set.
func (c *Config) StylistLLM() LLMConfig {
	cfg := c.GetLLM()
	if model := strings.TrimSpace(c.Stylist.Model); model != "" {
		cfg.Model = model
	}
	return cfg
}

// AnalyzeLLM returns the LLM settings used to describe uploaded photos.
func (c *Config) AnalyzeLLM() LLMConfig {
	cfg := c.StylistLLM()
	if model := strings.TrimSpace(c.Stylist.AnalyzeModel); model != "" {
		cfg.Model = model
	}
	return cfg
}
