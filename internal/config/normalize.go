package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeUploads()
	c.normalizeImageSearch()
	if err := c.normalizeForge(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("ATELIER_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	c.Paths.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Paths.PublicBaseURL), "/")
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupFirstEnv(providerKeyEnv(c.LLM.Provider)...)
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	switch {
	case c.LLM.BaseURL == "" && c.LLM.Provider == ProviderOpenAI:
		c.LLM.BaseURL = defaultOpenAIBaseURL
	case c.LLM.BaseURL == defaultOpenAIBaseURL && c.LLM.Provider != ProviderOpenAI:
		// The default endpoint only speaks the chat-completions protocol.
		c.LLM.BaseURL = ""
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.FallbackModels = normalizeList(c.LLM.FallbackModels, false)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = defaultLLMRetryAttempts
	}
	c.Stylist.Model = strings.TrimSpace(c.Stylist.Model)
	c.Stylist.AnalyzeModel = strings.TrimSpace(c.Stylist.AnalyzeModel)
}

func providerKeyEnv(provider string) []string {
	switch provider {
	case ProviderAnthropic:
		return []string{"ATELIER_LLM_API_KEY", "ANTHROPIC_API_KEY"}
	case ProviderGemini:
		return []string{"ATELIER_LLM_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return []string{"ATELIER_LLM_API_KEY", "OPENAI_API_KEY"}
	}
}

func (c *Config) normalizeUploads() {
	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = defaultUploadMaxBytes
	}
	exts := make([]string, 0, len(c.Uploads.AllowedExtensions))
	for _, ext := range c.Uploads.AllowedExtensions {
		exts = append(exts, strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	c.Uploads.AllowedExtensions = normalizeList(exts, true)
	if len(c.Uploads.AllowedExtensions) == 0 {
		c.Uploads.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
}

func (c *Config) normalizeImageSearch() {
	c.ImageSearch.PinterestAPIKey = strings.TrimSpace(c.ImageSearch.PinterestAPIKey)
	if c.ImageSearch.PinterestAPIKey == "" {
		c.ImageSearch.PinterestAPIKey = lookupFirstEnv("PINTEREST_API_KEY")
	}
	c.ImageSearch.UnsplashAPIKey = strings.TrimSpace(c.ImageSearch.UnsplashAPIKey)
	if c.ImageSearch.UnsplashAPIKey == "" {
		c.ImageSearch.UnsplashAPIKey = lookupFirstEnv("UNSPLASH_API_KEY")
	}
	c.ImageSearch.PinterestBaseURL = strings.TrimRight(strings.TrimSpace(c.ImageSearch.PinterestBaseURL), "/")
	if c.ImageSearch.PinterestBaseURL == "" {
		c.ImageSearch.PinterestBaseURL = defaultPinterestBaseURL
	}
	c.ImageSearch.UnsplashBaseURL = strings.TrimRight(strings.TrimSpace(c.ImageSearch.UnsplashBaseURL), "/")
	if c.ImageSearch.UnsplashBaseURL == "" {
		c.ImageSearch.UnsplashBaseURL = defaultUnsplashBaseURL
	}
	if c.ImageSearch.Limit <= 0 {
		c.ImageSearch.Limit = defaultImageSearchLimit
	}
	if c.ImageSearch.TimeoutSeconds <= 0 {
		c.ImageSearch.TimeoutSeconds = defaultImageSearchTimeout
	}
}

func (c *Config) normalizeForge() error {
	var err error
	if strings.TrimSpace(c.Forge.OutputDir) == "" {
		c.Forge.OutputDir = defaultForgeOutputDir
	}
	if c.Forge.OutputDir, err = expandPath(c.Forge.OutputDir); err != nil {
		return fmt.Errorf("forge.output_dir: %w", err)
	}
	c.Forge.Prompt = strings.TrimSpace(c.Forge.Prompt)
	if c.Forge.Prompt == "" {
		c.Forge.Prompt = defaultForgePrompt
	}
	c.Forge.Subject = strings.TrimSpace(c.Forge.Subject)
	if c.Forge.Subject == "" {
		c.Forge.Subject = defaultForgeSubject
	}
	c.Forge.GeneratorModel = strings.TrimSpace(c.Forge.GeneratorModel)
	c.Forge.ReviewerModel = strings.TrimSpace(c.Forge.ReviewerModel)
	c.Forge.AggregatorModel = strings.TrimSpace(c.Forge.AggregatorModel)
	c.Forge.AnalystModel = strings.TrimSpace(c.Forge.AnalystModel)
	if c.Forge.Concurrency <= 0 {
		c.Forge.Concurrency = defaultForgeConcurrency
	}
	c.Forge.ReviewerPrompts = normalizeList(c.Forge.ReviewerPrompts, false)
	if len(c.Forge.ReviewerPrompts) == 0 {
		c.Forge.ReviewerPrompts = []string{defaultReviewerPromptFixes, defaultReviewerPromptInspect}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupFirstEnv(names ...string) string {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// normalizeList trims entries, drops empties and duplicates, and optionally lowercases.
func normalizeList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if lower {
			normalized = strings.ToLower(normalized)
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
