package preflight

import (
	"context"

	"atelier/internal/config"
	"atelier/internal/llm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for cfg. LLM roles that resolve to the
// same model as one already checked are skipped.
func RunAll(ctx context.Context, cfg *config.Config, opts ...llm.Option) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	checked := map[string]bool{}
	for _, role := range llmRoles(cfg) {
		if checked[role.cfg.Model] {
			continue
		}
		checked[role.cfg.Model] = true
		results = append(results, CheckLLM(ctx, role.name, role.cfg, opts...))
	}

	results = append(results, CheckImageSearch(cfg.ImageSearch)...)
	return results
}

type llmRole struct {
	name string
	cfg  config.LLMConfig
}

func llmRoles(cfg *config.Config) []llmRole {
	roles := []llmRole{
		{name: "LLM", cfg: cfg.GetLLM()},
		{name: "Stylist LLM", cfg: cfg.StylistLLM()},
		{name: "Image analysis LLM", cfg: cfg.AnalyzeLLM()},
	}
	if model := cfg.Forge.GeneratorModel; model != "" {
		generator := cfg.GetLLM()
		generator.Model = model
		roles = append(roles, llmRole{name: "Forge generator LLM", cfg: generator})
	}
	return roles
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
