package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"atelier/internal/config"
	"atelier/internal/imagesearch"
	"atelier/internal/llm"
	"atelier/internal/logging"
	"atelier/internal/preflight"
	"atelier/internal/store"
	"atelier/internal/stylist"
	"atelier/internal/uploads"
	"atelier/internal/webapp"
)

// buildServer wires the stylist, upload store, and image search into the API server.
func buildServer(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*webapp.Server, error) {
	describer, err := llm.New(ctx, cfg.AnalyzeLLM())
	if err != nil {
		return nil, fmt.Errorf("image analysis llm: %w", err)
	}
	recommender, err := llm.New(ctx, cfg.StylistLLM())
	if err != nil {
		return nil, fmt.Errorf("stylist llm: %w", err)
	}

	files := uploads.New(cfg.Paths.UploadDir, cfg.Uploads)
	service := stylist.New(stylist.Options{
		Store:       st,
		Uploads:     files,
		Describer:   describer.WithLogger(logger),
		Recommender: recommender.WithLogger(logger),
		Temperature: cfg.Stylist.Temperature,

		PublicBaseURL: cfg.Paths.PublicBaseURL,
		Logger:        logger,
	})
	return webapp.New(webapp.Options{
		Bind:    cfg.Paths.APIBind,
		Token:   cfg.Paths.APIToken,
		Store:   st,
		Uploads: files,
		Stylist: service,
		Search:  imagesearch.New(cfg.ImageSearch),
		Logger:  logger,

		PublicBaseURL: cfg.Paths.PublicBaseURL,
	})
}

// logFilePath names the daemon log for a process started at now.
func logFilePath(cfg *config.Config, now time.Time) string {
	return filepath.Join(cfg.Paths.LogDir, "atelierd-"+now.Format("20060102T150405")+".log")
}

func retentionTargets(cfg *config.Config, current string) []logging.RetentionTarget {
	return []logging.RetentionTarget{
		{Dir: cfg.Paths.LogDir, Pattern: "atelierd-*.log", Exclude: []string{current}},
		{Dir: filepath.Join(cfg.Paths.LogDir, "forge"), Pattern: "*.log"},
	}
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.Alert("preflight"),
			logging.String(logging.FieldImpact, "related features fall back or fail until fixed"),
			logging.String(logging.FieldErrorHint, "run `atelier check` for details"),
		)
	}
}
