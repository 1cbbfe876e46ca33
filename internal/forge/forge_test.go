package forge_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"atelier/internal/config"
	"atelier/internal/forge"
	"atelier/internal/llm"
	"atelier/internal/store"
	"atelier/internal/testsupport"
)

const (
	generatedBundle = "### filename: index.html ###\n<h1>Banana Shop</h1>\n### end ###"
	aggregateBundle = "The reviewers agree on the title.\n\n" +
		"### filename: index.html ###\n```\n<h1>The Banana Shop</h1>\n```\n### end ###\n" +
		"### filename: style.css ###\nbody { background: yellow; }\n### end ###"
)

// siteModel answers each role with fixed content. Reviewers echo the code
// they were given with the title changed.
func siteModel(analysis string) *testsupport.ScriptedCompleter {
	return testsupport.NewScriptedCompleter(func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.System, "expert developer"):
			return generatedBundle, nil
		case strings.Contains(req.System, "reviewer"):
			_, code, _ := strings.Cut(req.User, "Here is the code:\n")
			return strings.ReplaceAll(code, "Banana Shop", "The Banana Shop"), nil
		case strings.Contains(req.System, "aggregator"):
			return aggregateBundle, nil
		case strings.Contains(req.System, "quality assurance"):
			return analysis, nil
		}
		return "", fmt.Errorf("unexpected system prompt %q", req.System)
	})
}

func newRunner(t *testing.T, cfg *config.Config, completer llm.Completer) (*forge.Runner, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	return forge.NewRunner(cfg, completer, st, nil), st
}

func TestRunIterativeConvergesWhenAggregateRepeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	model := siteModel("Add a navigation bar.")
	runner, st := newRunner(t, cfg, model)
	ctx := context.Background()

	result, err := runner.RunIterative(ctx, forge.IterativeOptions{})
	if err != nil {
		t.Fatalf("RunIterative: %v", err)
	}
	if !result.Converged || result.Iterations != 2 || result.Status != store.RunConverged {
		t.Fatalf("unexpected result %+v", result)
	}

	html, err := os.ReadFile(filepath.Join(cfg.Forge.OutputDir, "index.html"))
	if err != nil || string(html) != "<h1>The Banana Shop</h1>" {
		t.Fatalf("unexpected index.html %q err=%v", html, err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Forge.OutputDir, "style.css")); err != nil {
		t.Fatalf("expected style.css: %v", err)
	}

	generations := model.RequestsWithSystem("expert developer")
	if len(generations) != 2 {
		t.Fatalf("expected 2 generations, got %d", len(generations))
	}
	if generations[0].User != cfg.Forge.Prompt {
		t.Fatalf("first iteration should use the base prompt, got %q", generations[0].User)
	}
	if generations[0].Model != "gpt-4o-mini" || generations[0].Temperature != 0.8 {
		t.Fatalf("unexpected generator settings %+v", generations[0])
	}
	second := generations[1].User
	wantPrefix := cfg.Forge.Prompt + "\n\nIncorporate the following improvements based on the latest gap analysis:\nAdd a navigation bar." +
		"\n\nCurrent website files:\n### filename: index.html ###\n<h1>The Banana Shop</h1>\n### end ###\n"
	if !strings.HasPrefix(second, wantPrefix) {
		t.Fatalf("unexpected second prompt:\n%s", second)
	}
	if !strings.HasSuffix(second, "\n\nIncorporate the following improvements:\nAdd a navigation bar.") {
		t.Fatalf("second prompt should end with the pre-run analysis:\n%s", second)
	}

	reviews := model.RequestsWithSystem("reviewer")
	if len(reviews) != 4 {
		t.Fatalf("expected two reviewers per iteration, got %d", len(reviews))
	}
	if analyses := model.RequestsWithSystem("quality assurance"); len(analyses) != 3 {
		t.Fatalf("expected post, pre, post analyses, got %d", len(analyses))
	}
	aggregations := model.RequestsWithSystem("aggregator")
	if len(aggregations) != 2 || !strings.Contains(aggregations[0].User, "two revised versions") ||
		!strings.Contains(aggregations[0].User, "Reviewer 2 Revised Code:\n-----------------\n### filename: index.html ###\n<h1>The Banana Shop</h1>") {
		t.Fatalf("unexpected aggregation prompts %+v", aggregations)
	}

	run, err := st.GetRun(ctx, result.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunConverged || run.Iterations != 2 || !run.Converged || run.FinishedAt == nil {
		t.Fatalf("unexpected stored run %+v", run)
	}
	iterations, err := st.RunIterations(ctx, result.RunID)
	if err != nil || len(iterations) != 2 {
		t.Fatalf("RunIterations: %v (%d)", err, len(iterations))
	}
	if !iterations[0].Changed || iterations[1].Changed || iterations[1].FilesWritten != 2 {
		t.Fatalf("unexpected iterations %+v %+v", iterations[0], iterations[1])
	}
	if result.LogPath == "" {
		t.Fatal("expected a per-run log file")
	}
	if data, err := os.ReadFile(result.LogPath); err != nil || !strings.Contains(string(data), result.RunID) {
		t.Fatalf("run log should mention the run id, err=%v", err)
	}
}

func TestRunIterativeStopsAtIterationLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Forge.LogRuns = false
	var n atomic.Int32
	model := testsupport.NewScriptedCompleter(func(req llm.Request) (string, error) {
		if strings.Contains(req.System, "aggregator") {
			return fmt.Sprintf("### filename: index.html ###\nversion %d\n### end ###", n.Add(1)), nil
		}
		return "### filename: index.html ###\ndraft\n### end ###", nil
	})
	runner, st := newRunner(t, cfg, model)

	result, err := runner.RunIterative(context.Background(), forge.IterativeOptions{MaxIterations: 3})
	if err != nil {
		t.Fatalf("RunIterative: %v", err)
	}
	if result.Converged || result.Iterations != 3 || result.Status != store.RunCompleted || result.LogPath != "" {
		t.Fatalf("unexpected result %+v", result)
	}
	run, err := st.GetRun(context.Background(), result.RunID)
	if err != nil || run.Status != store.RunCompleted || run.Converged {
		t.Fatalf("unexpected run %+v err=%v", run, err)
	}
}

func TestRunIterativeMergesVariantsAndStripsFences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Forge.StripFences = true
	var generated atomic.Int32
	model := testsupport.NewScriptedCompleter(func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.System, "expert developer"):
			n := generated.Add(1)
			return fmt.Sprintf("### filename: app.js ###\nlet x = %d;\n### end ###", n), nil
		case strings.Contains(req.System, "reviewer"):
			_, code, _ := strings.Cut(req.User, "Here is the code:\n")
			return code, nil
		case strings.Contains(req.System, "aggregator"):
			return "Merged.\n\n### filename: app.js ###\nlet y = 2;\n```\n### end ###", nil
		case strings.Contains(req.System, "quality assurance"):
			return "Add a footer.", nil
		}
		return "", fmt.Errorf("unexpected system prompt %q", req.System)
	})
	runner, _ := newRunner(t, cfg, model)

	result, err := runner.RunIterative(context.Background(), forge.IterativeOptions{Variants: 3, MaxIterations: 1})
	if err != nil {
		t.Fatalf("RunIterative: %v", err)
	}
	if result.Status != store.RunCompleted || result.Iterations != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := len(model.RequestsWithSystem("expert developer")); got != 3 {
		t.Fatalf("expected 3 variant generations, got %d", got)
	}
	// Two pairwise merges for three variants plus one review aggregation.
	if got := len(model.RequestsWithSystem("aggregator")); got != 3 {
		t.Fatalf("expected 3 aggregator calls, got %d", got)
	}
	if got := len(model.RequestsWithSystem("reviewer")); got != 2 {
		t.Fatalf("expected 2 reviews, got %d", got)
	}

	js, err := os.ReadFile(filepath.Join(cfg.Forge.OutputDir, "app.js"))
	if err != nil {
		t.Fatalf("read app.js: %v", err)
	}
	if strings.Contains(string(js), "```") || !strings.Contains(string(js), "let y = 2;") {
		t.Fatalf("expected fence line stripped from app.js, got %q", js)
	}
}

func TestRunIterativeRecordsModelFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, st := newRunner(t, cfg, testsupport.FailingCompleter("quota exceeded"))

	result, err := runner.RunIterative(context.Background(), forge.IterativeOptions{})
	if !errors.Is(err, forge.ErrModel) {
		t.Fatalf("expected ErrModel, got %v", err)
	}
	if forge.ErrorKind(err) != "model" {
		t.Fatalf("unexpected error kind %q", forge.ErrorKind(err))
	}
	run, getErr := st.GetRun(context.Background(), result.RunID)
	if getErr != nil || run.Status != store.RunFailed || !strings.Contains(run.ErrorMessage, "quota exceeded") {
		t.Fatalf("unexpected failed run %+v err=%v", run, getErr)
	}
}

func TestRunIterativeRefusesLockedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := forge.AcquireLock(cfg.Forge.OutputDir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer func() { _ = lock.Release() }()

	runner, _ := newRunner(t, cfg, siteModel("none"))
	if _, err := runner.RunIterative(context.Background(), forge.IterativeOptions{}); !errors.Is(err, forge.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if filepath.Dir(lock.Path()) != filepath.Dir(cfg.Forge.OutputDir) {
		t.Fatalf("lock should sit beside the output dir, got %s", lock.Path())
	}
}

func TestRunIterativeSimilarityThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Forge.ConvergenceSimilarity = 0.8
	var n atomic.Int32
	model := testsupport.NewScriptedCompleter(func(req llm.Request) (string, error) {
		if strings.Contains(req.System, "aggregator") {
			// Same tokens apart from a trailing counter.
			return fmt.Sprintf("### filename: app.js ###\nconst shop = banana store open daily fresh fruit %d;\n### end ###", n.Add(1)), nil
		}
		return "### filename: app.js ###\nconst shop = 1;\n### end ###", nil
	})
	runner, _ := newRunner(t, cfg, model)

	result, err := runner.RunIterative(context.Background(), forge.IterativeOptions{MaxIterations: 5})
	if err != nil {
		t.Fatalf("RunIterative: %v", err)
	}
	if !result.Converged || result.Iterations != 2 {
		t.Fatalf("expected near-identical output to converge on iteration 2, got %+v", result)
	}
}

func TestRunOnceGeneratesReviewsAndOverwrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	model := siteModel("Consider a contact form.")
	runner, st := newRunner(t, cfg, model)
	source := filepath.Join(testsupport.BaseDir(cfg), "source_code.txt")

	result, err := runner.RunOnce(context.Background(), forge.OnceOptions{SourceFile: source})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Analysis != "Consider a contact form." || result.Status != store.RunCompleted {
		t.Fatalf("unexpected result %+v", result)
	}
	data, err := os.ReadFile(source)
	if err != nil || string(data) != aggregateBundle {
		t.Fatalf("source file should hold the aggregate, got %q err=%v", data, err)
	}
	if len(model.RequestsWithSystem("expert developer")) != 1 {
		t.Fatal("missing source file should be generated once")
	}
	if len(model.RequestsWithSystem("reviewer")) != 2 {
		t.Fatal("expected two reviews")
	}

	// Second pass loads the existing file instead of generating.
	if _, err := runner.RunOnce(context.Background(), forge.OnceOptions{SourceFile: source}); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if len(model.RequestsWithSystem("expert developer")) != 1 {
		t.Fatal("existing source file must not be regenerated")
	}
	runs, err := st.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 2 || runs[0].Mode != store.ModeOnce {
		t.Fatalf("unexpected runs %+v err=%v", runs, err)
	}
}

func TestMergeVariantsTree(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	model := testsupport.NewScriptedCompleter(func(req llm.Request) (string, error) {
		parts := strings.Split(req.User, "-----------------\n")
		// parts[1] is the original, parts[2:] the revisions.
		var merged []string
		for _, part := range parts[2:] {
			line, _, _ := strings.Cut(part, "\n")
			merged = append(merged, line)
		}
		return strings.Join(merged, "+"), nil
	})
	pipeline := forge.NewPipeline(cfg.Forge, model, nil)
	ctx := context.Background()

	if _, err := pipeline.MergeVariants(ctx, "orig", nil); !errors.Is(err, forge.ErrNoVariants) {
		t.Fatalf("expected ErrNoVariants, got %v", err)
	}
	single, err := pipeline.MergeVariants(ctx, "orig", []string{"only"})
	if err != nil || single != "only" || len(model.Requests()) != 0 {
		t.Fatalf("single variant should pass through, got %q err=%v", single, err)
	}

	merged, err := pipeline.MergeVariants(ctx, "orig", []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("MergeVariants: %v", err)
	}
	if merged != "a+b+c+d+e" {
		t.Fatalf("unexpected merge order %q", merged)
	}
	// Rounds: (a,b)(c,d) e -> (ab,cd) e -> (abcd,e).
	if got := len(model.Requests()); got != 4 {
		t.Fatalf("expected 4 aggregator calls, got %d", got)
	}
}

func TestReviewPreservesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Forge.ReviewerPrompts = []string{"first", "second", "third"}
	cfg.Forge.Concurrency = 3
	model := testsupport.NewScriptedCompleter(func(req llm.Request) (string, error) {
		instruction, _, _ := strings.Cut(req.User, "\n")
		return "reviewed by " + instruction, nil
	})
	pipeline := forge.NewPipeline(cfg.Forge, model, nil)

	reviews, err := pipeline.Review(context.Background(), "code")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	want := []string{"reviewed by first", "reviewed by second", "reviewed by third"}
	for i := range want {
		if reviews[i] != want[i] {
			t.Fatalf("review %d: got %q want %q", i, reviews[i], want[i])
		}
	}
	for _, req := range model.Requests() {
		if req.Temperature != 0.3 || !strings.HasSuffix(req.User, "\n\nHere is the code:\ncode") {
			t.Fatalf("unexpected review request %+v", req)
		}
	}
}
