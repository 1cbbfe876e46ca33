package testsupport

import (
	"path/filepath"
	"testing"

	"atelier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.UploadDir = filepath.Join(base, "data", "uploads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = "test"
	cfgVal.Forge.OutputDir = filepath.Join(base, "website_files")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken enables bearer auth on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithLLMBaseURL points the shared LLM settings at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.Provider = config.ProviderOpenAI
		b.cfg.LLM.BaseURL = url
	}
}

// WithImageSearch points the image search proxy at a test server.
func WithImageSearch(baseURL, pinterestKey, unsplashKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ImageSearch.PinterestBaseURL = baseURL
		b.cfg.ImageSearch.UnsplashBaseURL = baseURL
		b.cfg.ImageSearch.PinterestAPIKey = pinterestKey
		b.cfg.ImageSearch.UnsplashAPIKey = unsplashKey
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
