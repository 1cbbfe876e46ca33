package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atelier/internal/store"
)

const siteBundle = "### filename: index.html ###\n<h1>Banana Shop</h1>\n### end ###"

func forgeModel(system, user string) string {
	switch {
	case strings.Contains(system, "expert developer"):
		return siteBundle
	case strings.Contains(system, "reviewer"):
		_, code, _ := strings.Cut(user, "Here is the code:\n")
		return code
	case strings.Contains(system, "aggregator"):
		return "Merged.\n\n" + siteBundle
	case strings.Contains(system, "quality assurance"):
		return "Add a footer."
	}
	return "unexpected"
}

func TestForgeRunRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t, forgeModel)
	outputDir := filepath.Join(env.baseDir, "site")

	out := mustRunCLI(t, env, "forge", "run", "--output-dir", outputDir, "--iterations", "3")
	requireContains(t, out, "Converged")
	requireContains(t, out, "Add a footer.")

	html, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	if err != nil || string(html) != "<h1>Banana Shop</h1>" {
		t.Fatalf("unexpected index.html %q err=%v", html, err)
	}

	out = mustRunCLI(t, env, "--json", "forge", "runs")
	var runs []store.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != store.RunConverged || run.Iterations != 2 || !run.Converged {
		t.Fatalf("unexpected run %+v", run)
	}

	out = mustRunCLI(t, env, "forge", "show", run.ID[:8])
	requireContains(t, out, run.ID)
	requireContains(t, out, "Gap analysis")
	requireContains(t, out, "Converged")

	out = mustRunCLI(t, env, "forge", "runs")
	requireContains(t, out, run.ID[:8])
}

func TestForgeOnceWritesSourceFile(t *testing.T) {
	env := setupCLITestEnv(t, forgeModel)
	source := filepath.Join(env.baseDir, "source_code.txt")

	out := mustRunCLI(t, env, "forge", "once", "--source", source)
	requireContains(t, out, "Forge Once Run")

	content, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if !strings.Contains(string(content), "Merged.") {
		t.Fatalf("expected aggregated code in source file, got %q", content)
	}
}

func TestForgeMergeWritesOutput(t *testing.T) {
	env := setupCLITestEnv(t, forgeModel)
	dir := t.TempDir()
	var variants []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write variant: %v", err)
		}
		variants = append(variants, path)
	}
	target := filepath.Join(dir, "merged.txt")

	args := append([]string{"forge", "merge", "--out", target}, variants...)
	out := mustRunCLI(t, env, args...)
	requireContains(t, out, "Merged 3 versions")

	merged, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	requireContains(t, string(merged), "Banana Shop")
}

func TestForgeStripFences(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	if err := os.WriteFile(page, []byte("```html\n<p>hi</p>\n```\n"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	out, _, err := runCLI(t, []string{"forge", "strip-fences", dir}, filepath.Join(dir, "absent.toml"))
	if err != nil {
		t.Fatalf("strip-fences: %v", err)
	}
	requireContains(t, out, "1 files cleaned")

	content, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if strings.Contains(string(content), "```") {
		t.Fatalf("expected fences removed, got %q", content)
	}
}

func TestForgeShowUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t, forgeModel)
	_, _, err := runCLI(t, []string{"forge", "show", "nope"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown run to fail")
	}
	requireContains(t, err.Error(), "not found")
}

func TestLogsShowsForgeRunLog(t *testing.T) {
	env := setupCLITestEnv(t, forgeModel)
	mustRunCLI(t, env, "forge", "run", "--output-dir", filepath.Join(env.baseDir, "site"), "--iterations", "1")

	out := mustRunCLI(t, env, "--json", "forge", "runs")
	var runs []store.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil || len(runs) != 1 {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}

	out = mustRunCLI(t, env, "logs", "--run", runs[0].ID, "--lines", "200")
	requireContains(t, out, "forge run finished")

	if _, _, err := runCLI(t, []string{"logs"}, env.configPath); err == nil {
		t.Fatal("expected logs to fail without a daemon log")
	}
}
