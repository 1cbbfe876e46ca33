package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atelier/internal/config"
	"atelier/internal/filebundle"
	"atelier/internal/llm"
	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/textutil"
)

// Runner executes forge runs and records them in the store.
type Runner struct {
	pipeline *Pipeline
	store    *store.Store
	logger   *slog.Logger

	outputDir             string
	prompt                string
	subject               string
	maxIterations         int
	variants              int
	stripFences           bool
	convergenceSimilarity float64

	runLogDir string
	logLevel  string
}

// NewRunner wires a runner from cfg. Per-run log files are written under
// <log_dir>/forge when forge.log_runs is set.
func NewRunner(cfg *config.Config, completer llm.Completer, st *store.Store, logger *slog.Logger) *Runner {
	r := &Runner{
		pipeline:              NewPipeline(cfg.Forge, completer, logger),
		store:                 st,
		logger:                logging.NewComponentLogger(logger, "forge"),
		outputDir:             cfg.Forge.OutputDir,
		prompt:                cfg.Forge.Prompt,
		subject:               cfg.Forge.Subject,
		maxIterations:         cfg.Forge.MaxIterations,
		variants:              cfg.Forge.Variants,
		stripFences:           cfg.Forge.StripFences,
		convergenceSimilarity: cfg.Forge.ConvergenceSimilarity,
		logLevel:              cfg.Logging.Level,
	}
	if cfg.Forge.LogRuns {
		r.runLogDir = filepath.Join(cfg.Paths.LogDir, "forge")
	}
	return r
}

// Pipeline exposes the model calls for one-off commands such as merge.
func (r *Runner) Pipeline() *Pipeline {
	return r.pipeline
}

// IterativeOptions overrides the configured defaults for one run.
type IterativeOptions struct {
	OutputDir     string
	Prompt        string
	Subject       string
	MaxIterations int
	Variants      int
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	Mode         string
	Target       string
	Status       store.RunStatus
	Iterations   int
	Converged    bool
	FilesWritten int
	Analysis     string
	Final        string
	LogPath      string
}

func (r *Runner) resolveIterative(opts IterativeOptions) IterativeOptions {
	if strings.TrimSpace(opts.OutputDir) == "" {
		opts.OutputDir = r.outputDir
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		opts.Prompt = r.prompt
	}
	if strings.TrimSpace(opts.Subject) == "" {
		opts.Subject = r.subject
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = r.maxIterations
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 1
	}
	if opts.Variants <= 0 {
		opts.Variants = r.variants
	}
	return opts
}

// RunIterative repeats generate, review, aggregate, and analyze against
// opts.OutputDir until the aggregated bundle stops changing or the iteration
// limit is reached.
func (r *Runner) RunIterative(ctx context.Context, opts IterativeOptions) (*Result, error) {
	opts = r.resolveIterative(opts)
	lock, err := AcquireLock(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, wrap(ErrOutput, "setup", "create output dir", opts.OutputDir, err)
	}

	session, err := r.begin(ctx, store.Run{Subject: opts.Subject, OutputDir: opts.OutputDir, Mode: store.ModeIterative})
	if err != nil {
		return nil, err
	}
	defer session.close()
	ctx = session.ctx

	result := &Result{RunID: session.run.ID, Mode: store.ModeIterative, Target: opts.OutputDir, LogPath: session.logPath}
	logging.WithContext(ctx, session.logger).Info("forge run started",
		logging.String("output_dir", opts.OutputDir),
		logging.String("subject", opts.Subject),
		logging.Int("max_iterations", opts.MaxIterations),
		logging.Int("variants", opts.Variants),
		logging.String(logging.FieldEventType, "forge_run_started"),
	)

	basePrompt := opts.Prompt
	previous := ""
	for iteration := 1; iteration <= opts.MaxIterations; iteration++ {
		ictx := logging.WithIteration(ctx, iteration)
		out, err := r.iterate(ictx, session, opts, basePrompt)
		if err != nil {
			return result, r.fail(ictx, session, result, err)
		}
		converged := r.converged(previous, out.aggregated)
		if err := r.store.RecordIteration(ctx, store.Iteration{
			RunID:        session.run.ID,
			Iteration:    iteration,
			GapAnalysis:  out.analysis,
			FilesWritten: out.filesWritten,
			Changed:      !converged,
		}); err != nil {
			return result, r.fail(ictx, session, result, wrap(ErrRecord, "record", "iteration", "", err))
		}

		result.Iterations = iteration
		result.FilesWritten = out.filesWritten
		result.Analysis = out.analysis
		result.Final = out.aggregated
		basePrompt = nextBasePrompt(opts.Prompt, out.analysis)

		logging.WithContext(ictx, session.logger).Info("iteration complete",
			logging.Int("files_written", out.filesWritten),
			logging.Bool("changed", !converged),
			logging.String("analysis", textutil.Snippet(out.analysis, 160)),
			logging.String(logging.FieldEventType, "forge_iteration_complete"),
		)
		if converged {
			result.Converged = true
			break
		}
		previous = out.aggregated
	}

	result.Status = store.RunCompleted
	if result.Converged {
		result.Status = store.RunConverged
	}
	if err := r.store.FinishRun(ctx, session.run.ID, result.Status, result.Converged, ""); err != nil {
		return result, wrap(ErrRecord, "record", "finish run", "", err)
	}
	logging.WithContext(ctx, session.logger).Info("forge run finished",
		logging.String("status", string(result.Status)),
		logging.Int("iterations", result.Iterations),
		logging.String(logging.FieldEventType, "forge_run_finished"),
	)
	return result, nil
}

type iterationOutput struct {
	aggregated   string
	analysis     string
	filesWritten int
}

func (r *Runner) iterate(ctx context.Context, session *runSession, opts IterativeOptions, basePrompt string) (iterationOutput, error) {
	var out iterationOutput
	pipeline, logger := session.pipeline, session.logger

	current, err := filebundle.Assemble(opts.OutputDir)
	if err != nil {
		return out, wrap(ErrOutput, "pre-analyze", "assemble", opts.OutputDir, err)
	}
	prompt := basePrompt
	if strings.TrimSpace(current) != "" {
		pre, err := pipeline.Analyze(logging.WithStep(ctx, "pre-analyze"), opts.Subject, current)
		if err != nil {
			return out, err
		}
		prompt = preRunPrompt(basePrompt, current, pre)
		logging.WithContext(logging.WithStep(ctx, "pre-analyze"), logger).Info("pre-run analysis complete",
			logging.String("analysis", textutil.Snippet(pre, 160)),
		)
	}

	variants, err := pipeline.GenerateVariants(ctx, prompt, opts.Variants)
	if err != nil {
		return out, err
	}
	generated := variants[0]
	if len(variants) > 1 {
		generated, err = pipeline.MergeVariants(logging.WithStep(ctx, "merge"), current, variants)
		if err != nil {
			return out, err
		}
	}
	if _, err := r.writeBundle(logging.WithStep(ctx, "generate"), logger, generated, opts.OutputDir); err != nil {
		return out, err
	}

	reviews, err := pipeline.Review(ctx, generated)
	if err != nil {
		return out, err
	}
	aggregated, err := pipeline.Aggregate(ctx, generated, reviews)
	if err != nil {
		return out, err
	}
	written, err := r.writeBundle(logging.WithStep(ctx, "aggregate"), logger, aggregated, opts.OutputDir)
	if err != nil {
		return out, err
	}

	analysis, err := pipeline.Analyze(logging.WithStep(ctx, "post-analyze"), opts.Subject, aggregated)
	if err != nil {
		return out, err
	}
	out.aggregated = aggregated
	out.analysis = analysis
	out.filesWritten = written
	return out, nil
}

// writeBundle parses text and writes its files into dir. A response without
// any file blocks writes nothing.
func (r *Runner) writeBundle(ctx context.Context, logger *slog.Logger, text, dir string) (int, error) {
	step := "write"
	files := filebundle.Parse(text)
	if len(files) == 0 {
		logging.WarnWithContext(logging.WithContext(ctx, logger), "model response contained no file blocks", "forge_empty_bundle",
			logging.String("response", textutil.Snippet(text, 160)),
			logging.String(logging.FieldImpact, "output directory left unchanged for this step"),
			logging.String(logging.FieldErrorHint, "the model must answer with ### filename: ... ### blocks"),
		)
		return 0, nil
	}
	written, err := filebundle.Write(files, dir)
	if err != nil {
		return len(written), wrap(ErrOutput, step, "write files", dir, err)
	}
	if r.stripFences {
		if _, err := filebundle.StripFenceLines(dir); err != nil {
			return len(written), wrap(ErrOutput, step, "strip fences", dir, err)
		}
	}
	logging.WithContext(ctx, logger).Info("files written",
		logging.Int("files", len(written)),
		logging.String("output_dir", dir),
	)
	return len(written), nil
}

// converged reports whether next repeats previous. Below a threshold of 1
// near-identical bundles also count.
func (r *Runner) converged(previous, next string) bool {
	a, b := strings.TrimSpace(previous), strings.TrimSpace(next)
	if a == b {
		return true
	}
	if r.convergenceSimilarity >= 1 || a == "" || b == "" {
		return false
	}
	return textutil.Similarity(a, b) >= r.convergenceSimilarity
}

type runSession struct {
	ctx      context.Context
	run      *store.Run
	logger   *slog.Logger
	pipeline *Pipeline
	logPath  string
	closer   func() error
}

func (s *runSession) close() {
	if s.closer != nil {
		_ = s.closer()
	}
}

func (r *Runner) begin(ctx context.Context, run store.Run) (*runSession, error) {
	started, err := r.store.StartRun(ctx, run)
	if err != nil {
		return nil, wrap(ErrRecord, "setup", "start run", "", err)
	}
	session := &runSession{
		ctx:    logging.WithRunID(ctx, started.ID),
		run:    started,
		logger: r.logger,
	}
	if r.runLogDir != "" {
		path := filepath.Join(r.runLogDir, started.ID+".log")
		handler, closer, err := logging.NewFileHandler(path, r.logLevel)
		if err != nil {
			logging.WarnWithContext(r.logger, "run log unavailable", "forge_run_log_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "run output only goes to the main log"),
			)
		} else {
			session.logger = logging.TeeLogger(r.logger, handler)
			session.logPath = path
			session.closer = closer
		}
	}
	pipeline := *r.pipeline
	pipeline.logger = session.logger
	session.pipeline = &pipeline
	return session, nil
}

func (r *Runner) fail(ctx context.Context, session *runSession, result *Result, cause error) error {
	result.Status = store.RunFailed
	logging.ErrorWithContext(logging.WithContext(ctx, session.logger), "forge run failed", "forge_run_failed",
		logging.Error(cause),
		logging.String("error_kind", ErrorKind(cause)),
		logging.String(logging.FieldErrorHint, failureHint(cause)),
	)
	finishCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		finishCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := r.store.FinishRun(finishCtx, session.run.ID, store.RunFailed, false, cause.Error()); err != nil {
		return errors.Join(cause, fmt.Errorf("record failure: %w", err))
	}
	return cause
}

func failureHint(err error) string {
	switch ErrorKind(err) {
	case "model":
		return "check llm settings with `atelier check`"
	case "output":
		return "check permissions on the output directory"
	case "history":
		return "check the database path and disk space"
	default:
		return "check logs for details"
	}
}
