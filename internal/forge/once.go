package forge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/textutil"
)

// DefaultSourceFile is the single-file mode target when none is given.
const DefaultSourceFile = "source_code.txt"

// OnceOptions configures a single review pass.
type OnceOptions struct {
	SourceFile string
	Prompt     string
	Subject    string
}

// RunOnce reviews the code in opts.SourceFile once and overwrites the file
// with the aggregated result. A missing file is first generated from the
// prompt and saved.
func (r *Runner) RunOnce(ctx context.Context, opts OnceOptions) (*Result, error) {
	if strings.TrimSpace(opts.SourceFile) == "" {
		opts.SourceFile = DefaultSourceFile
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		opts.Prompt = r.prompt
	}
	if strings.TrimSpace(opts.Subject) == "" {
		opts.Subject = r.subject
	}

	lock, err := AcquireLock(opts.SourceFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	session, err := r.begin(ctx, store.Run{Subject: opts.Subject, OutputDir: opts.SourceFile, Mode: store.ModeOnce})
	if err != nil {
		return nil, err
	}
	defer session.close()
	ctx = logging.WithIteration(session.ctx, 1)
	logger := logging.WithContext(ctx, session.logger)
	pipeline := session.pipeline

	result := &Result{RunID: session.run.ID, Mode: store.ModeOnce, Target: opts.SourceFile, LogPath: session.logPath}

	code, loaded, err := readSource(opts.SourceFile)
	if err != nil {
		return result, r.fail(ctx, session, result, wrap(ErrOutput, "load", "read source", opts.SourceFile, err))
	}
	if loaded {
		logger.Info("loaded source file", logging.String("path", opts.SourceFile), logging.Int("chars", len(code)))
	} else {
		code, err = pipeline.Generate(ctx, opts.Prompt)
		if err != nil {
			return result, r.fail(ctx, session, result, err)
		}
		if err := writeSource(opts.SourceFile, code); err != nil {
			return result, r.fail(ctx, session, result, wrap(ErrOutput, "generate", "save source", opts.SourceFile, err))
		}
		logger.Info("generated and saved source file", logging.String("path", opts.SourceFile))
	}

	reviews, err := pipeline.Review(ctx, code)
	if err != nil {
		return result, r.fail(ctx, session, result, err)
	}
	final, err := pipeline.Aggregate(ctx, code, reviews)
	if err != nil {
		return result, r.fail(ctx, session, result, err)
	}
	analysis, err := pipeline.Analyze(ctx, opts.Subject, final)
	if err != nil {
		return result, r.fail(ctx, session, result, err)
	}
	if err := writeSource(opts.SourceFile, final); err != nil {
		return result, r.fail(ctx, session, result, wrap(ErrOutput, "aggregate", "overwrite source", opts.SourceFile, err))
	}

	changed := strings.TrimSpace(final) != strings.TrimSpace(code)
	if err := r.store.RecordIteration(ctx, store.Iteration{
		RunID:        session.run.ID,
		Iteration:    1,
		GapAnalysis:  analysis,
		FilesWritten: 1,
		Changed:      changed,
	}); err != nil {
		return result, r.fail(ctx, session, result, wrap(ErrRecord, "record", "iteration", "", err))
	}
	result.Status = store.RunCompleted
	result.Iterations = 1
	result.FilesWritten = 1
	result.Analysis = analysis
	result.Final = final
	if err := r.store.FinishRun(ctx, session.run.ID, result.Status, false, ""); err != nil {
		return result, wrap(ErrRecord, "record", "finish run", "", err)
	}
	logger.Info("source file updated",
		logging.String("path", opts.SourceFile),
		logging.Bool("changed", changed),
		logging.String("analysis", textutil.Snippet(analysis, 160)),
		logging.String(logging.FieldEventType, "forge_once_finished"),
	)
	return result, nil
}

func readSource(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func writeSource(path, content string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
