package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"atelier/internal/store"
	"atelier/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if st.Path() != filepath.Join(cfg.Paths.DataDir, "atelier.db") {
		t.Fatalf("unexpected db path %q", st.Path())
	}
	versions, err := st.SchemaVersions(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersions: %v", err)
	}
	if strings.Join(versions, ",") != "0001_catalogue,0002_forge_runs" {
		t.Fatalf("unexpected migrations %v", versions)
	}

	// Reopening must not re-apply anything.
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestClothesLifecycle(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := st.AddClothing(ctx, "a.png", "A red wool scarf")
	if err != nil {
		t.Fatalf("AddClothing: %v", err)
	}
	second, err := st.AddClothing(ctx, "b.jpg", "")
	if err != nil {
		t.Fatalf("AddClothing: %v", err)
	}
	if first.ID == 0 || second.ID == first.ID {
		t.Fatalf("unexpected ids %d %d", first.ID, second.ID)
	}
	if first.UploadTime.IsZero() {
		t.Fatal("expected upload time")
	}

	items, err := st.ListClothes(ctx)
	if err != nil {
		t.Fatalf("ListClothes: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", items)
	}

	descs, err := st.Descriptions(ctx)
	if err != nil {
		t.Fatalf("Descriptions: %v", err)
	}
	if len(descs) != 1 || descs[0] != "A red wool scarf" {
		t.Fatalf("unexpected descriptions %v", descs)
	}

	if err := st.UpdateClothingDescription(ctx, second.ID, "Blue denim jacket"); err != nil {
		t.Fatalf("UpdateClothingDescription: %v", err)
	}
	got, err := st.GetClothing(ctx, second.ID)
	if err != nil || got == nil || got.Description != "Blue denim jacket" {
		t.Fatalf("unexpected updated item %+v err=%v", got, err)
	}

	if err := st.DeleteClothing(ctx, first.ID); err != nil {
		t.Fatalf("DeleteClothing: %v", err)
	}
	missing, err := st.GetClothing(ctx, first.ID)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for deleted row, got %+v %v", missing, err)
	}
	if err := st.DeleteClothing(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.UpdateClothingDescription(ctx, 9999, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.AddClothing(ctx, "  ", "x"); err == nil {
		t.Fatal("expected error for blank filename")
	}
}

func TestPreferencesAndRecommendations(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	latest, err := st.LatestRecommendation(ctx)
	if err != nil || latest != nil {
		t.Fatalf("expected no recommendation, got %+v %v", latest, err)
	}
	if pref, err := st.LatestPreference(ctx); err != nil || pref != nil {
		t.Fatalf("expected no preference, got %+v %v", pref, err)
	}

	if _, err := st.AddPreference(ctx, "  "); err == nil {
		t.Fatal("expected error for blank style")
	}
	pref, err := st.AddPreference(ctx, " casual ")
	if err != nil {
		t.Fatalf("AddPreference: %v", err)
	}
	if pref.StyleText != "casual" {
		t.Fatalf("expected trimmed style, got %q", pref.StyleText)
	}
	if _, err := st.AddPreference(ctx, "formal"); err != nil {
		t.Fatalf("AddPreference: %v", err)
	}
	prefs, err := st.ListPreferences(ctx, 10)
	if err != nil || len(prefs) != 2 || prefs[0].StyleText != "formal" {
		t.Fatalf("unexpected preferences %+v err=%v", prefs, err)
	}

	for _, text := range []string{"first outfit", "second outfit"} {
		if _, err := st.AddRecommendation(ctx, store.Recommendation{
			OutfitDescription: text,
			Reason:            "because",
			PreferenceID:      pref.ID,
		}); err != nil {
			t.Fatalf("AddRecommendation: %v", err)
		}
	}
	latest, err = st.LatestRecommendation(ctx)
	if err != nil || latest == nil {
		t.Fatalf("LatestRecommendation: %+v %v", latest, err)
	}
	if latest.OutfitDescription != "second outfit" || latest.PreferenceID != pref.ID || latest.GeneratedImage != "" {
		t.Fatalf("unexpected latest %+v", latest)
	}
	recs, err := st.ListRecommendations(ctx, 1)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected one recommendation with limit, got %d err=%v", len(recs), err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Preferences != 2 || stats.Recommendations != 2 || stats.Clothes != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestForgeRunLifecycle(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := st.StartRun(ctx, store.Run{Subject: "bananas", OutputDir: "/tmp/site"})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.ID == "" || run.Status != store.RunRunning || run.Mode != store.ModeIterative {
		t.Fatalf("unexpected run %+v", run)
	}

	for i, changed := range []bool{true, false} {
		if err := st.RecordIteration(ctx, store.Iteration{
			RunID:        run.ID,
			Iteration:    i + 1,
			GapAnalysis:  "add a cart",
			FilesWritten: 3,
			Changed:      changed,
		}); err != nil {
			t.Fatalf("RecordIteration %d: %v", i+1, err)
		}
	}
	if err := st.RecordIteration(ctx, store.Iteration{RunID: "missing", Iteration: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown run, got %v", err)
	}

	if err := st.FinishRun(ctx, run.ID, store.RunConverged, true, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := st.FinishRun(ctx, "missing", store.RunFailed, false, "boom"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := st.GetRun(ctx, run.ID[:8])
	if err != nil || got == nil {
		t.Fatalf("GetRun by prefix: %+v %v", got, err)
	}
	if got.Status != store.RunConverged || !got.Converged || got.Iterations != 2 || got.FinishedAt == nil {
		t.Fatalf("unexpected finished run %+v", got)
	}

	its, err := st.RunIterations(ctx, run.ID)
	if err != nil || len(its) != 2 {
		t.Fatalf("RunIterations: %+v %v", its, err)
	}
	if !its[0].Changed || its[1].Changed || its[1].FilesWritten != 3 {
		t.Fatalf("unexpected iterations %+v %+v", its[0], its[1])
	}

	runs, err := st.ListRuns(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %+v %v", runs, err)
	}
	if none, err := st.GetRun(ctx, "zzzz"); err != nil || none != nil {
		t.Fatalf("expected no run, got %+v %v", none, err)
	}
}
