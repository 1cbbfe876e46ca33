package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"atelier/internal/config"
)

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ATELIER_LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"PINTEREST_API_KEY", "UNSPLASH_API_KEY", "ATELIER_API_TOKEN",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("PINTEREST_API_KEY", "pin-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "atelier")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.UploadDir != filepath.Join(wantData, "uploads") {
		t.Fatalf("unexpected upload dir: %q", cfg.Paths.UploadDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:5000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.ImageSearch.PinterestAPIKey != "pin-key" {
		t.Fatalf("expected pinterest key from env, got %q", cfg.ImageSearch.PinterestAPIKey)
	}
	if cfg.ImageSearch.UnsplashAPIKey != "" {
		t.Fatalf("expected unsplash key empty, got %q", cfg.ImageSearch.UnsplashAPIKey)
	}
	if cfg.Uploads.MaxBytes != 16*1024*1024 {
		t.Fatalf("unexpected max upload bytes: %d", cfg.Uploads.MaxBytes)
	}
	if len(cfg.Forge.ReviewerPrompts) != 2 {
		t.Fatalf("expected two default reviewer prompts, got %d", len(cfg.Forge.ReviewerPrompts))
	}
	if !filepath.IsAbs(cfg.Forge.OutputDir) {
		t.Fatalf("expected forge output dir to be absolute, got %q", cfg.Forge.OutputDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "atelier.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.UploadDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearLLMEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/catalogue"
api_bind = "0.0.0.0:9000"

[llm]
provider = "Anthropic"
api_key = "explicit"
model = "claude-sonnet-4-5"
fallback_models = [" claude-haiku-4-5 ", "", "claude-haiku-4-5"]

[uploads]
allowed_extensions = [".PNG", "webp", "png"]

[forge]
variants = 4
reviewer_prompts = ["  Check accessibility. "]
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "catalogue") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.Provider != config.ProviderAnthropic {
		t.Fatalf("expected provider normalized to anthropic, got %q", cfg.LLM.Provider)
	}
	if got := cfg.LLM.FallbackModels; len(got) != 1 || got[0] != "claude-haiku-4-5" {
		t.Fatalf("unexpected fallback models: %v", got)
	}
	if got := strings.Join(cfg.Uploads.AllowedExtensions, ","); got != "png,webp" {
		t.Fatalf("unexpected allowed extensions: %s", got)
	}
	if cfg.Forge.Variants != 4 {
		t.Fatalf("unexpected variants: %d", cfg.Forge.Variants)
	}
	if got := cfg.Forge.ReviewerPrompts; len(got) != 1 || got[0] != "Check accessibility." {
		t.Fatalf("unexpected reviewer prompts: %v", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("HOME", t.TempDir())

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"provider", "[llm]\nprovider = \"mystery\"\n", "llm.provider"},
		{"variants", "[forge]\nvariants = 0\n", "forge.variants"},
		{"iterations", "[forge]\nmax_iterations = 0\n", "forge.max_iterations"},
		{"temperature", "[stylist]\ntemperature = 3.5\n", "stylist.temperature"},
		{"level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestStylistLLMFallsBackToShared(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Model = "shared-model"
	if got := cfg.StylistLLM().Model; got != "shared-model" {
		t.Fatalf("expected stylist model to fall back, got %q", got)
	}
	cfg.Stylist.Model = "stylist-model"
	if got := cfg.AnalyzeLLM().Model; got != "stylist-model" {
		t.Fatalf("expected analyze model to fall back to stylist, got %q", got)
	}
	cfg.Stylist.AnalyzeModel = "vision-model"
	if got := cfg.AnalyzeLLM().Model; got != "vision-model" {
		t.Fatalf("expected analyze model override, got %q", got)
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Forge.MaxIterations != 5 {
		t.Fatalf("unexpected sample max_iterations: %d", cfg.Forge.MaxIterations)
	}
}
