package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/filebundle"
	"atelier/internal/forge"
	"atelier/internal/store"
	"atelier/internal/textutil"
)

func newForgeCommand(ctx *commandContext) *cobra.Command {
	forgeCmd := &cobra.Command{
		Use:   "forge",
		Short: "Generate, review, and refine code with the LLM pipeline",
	}

	forgeCmd.AddCommand(newForgeRunCommand(ctx))
	forgeCmd.AddCommand(newForgeOnceCommand(ctx))
	forgeCmd.AddCommand(newForgeMergeCommand(ctx))
	forgeCmd.AddCommand(newForgeStripFencesCommand())
	forgeCmd.AddCommand(newForgeRunsCommand(ctx))
	forgeCmd.AddCommand(newForgeShowCommand(ctx))

	return forgeCmd
}

func (c *commandContext) withRunner(cmd *cobra.Command, fn func(cfg *config.Config, runner *forge.Runner) error) error {
	return c.withStore(func(cfg *config.Config, st *store.Store) error {
		completer, err := c.completer(cmd.Context(), cmd, cfg.GetLLM())
		if err != nil {
			return err
		}
		return fn(cfg, forge.NewRunner(cfg, completer, st, c.logger(cmd)))
	})
}

func newForgeRunCommand(ctx *commandContext) *cobra.Command {
	var opts forge.IterativeOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Iterate on a multi-file project until it stops changing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir := strings.TrimSpace(opts.OutputDir); dir != "" {
				expanded, err := config.ExpandPath(dir)
				if err != nil {
					return err
				}
				opts.OutputDir = expanded
			}
			return ctx.withRunner(cmd, func(_ *config.Config, runner *forge.Runner) error {
				result, err := runner.RunIterative(cmd.Context(), opts)
				return reportForgeResult(cmd, ctx, result, err)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Project directory (defaults to forge.output_dir)")
	cmd.Flags().StringVarP(&opts.Prompt, "prompt", "p", "", "Generation prompt (defaults to forge.prompt)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "What the project is, used by gap analysis")
	cmd.Flags().IntVarP(&opts.MaxIterations, "iterations", "n", 0, "Maximum iterations (defaults to forge.max_iterations)")
	cmd.Flags().IntVar(&opts.Variants, "variants", 0, "Generated variants merged per iteration (defaults to forge.variants)")
	return cmd
}

func newForgeOnceCommand(ctx *commandContext) *cobra.Command {
	var opts forge.OnceOptions

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Review a single source file once and overwrite it",
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(opts.SourceFile)
			if source == "" {
				source = forge.DefaultSourceFile
			}
			expanded, err := config.ExpandPath(source)
			if err != nil {
				return err
			}
			opts.SourceFile = expanded
			return ctx.withRunner(cmd, func(_ *config.Config, runner *forge.Runner) error {
				result, err := runner.RunOnce(cmd.Context(), opts)
				return reportForgeResult(cmd, ctx, result, err)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.SourceFile, "source", "s", forge.DefaultSourceFile, "Source file to review; generated when missing")
	cmd.Flags().StringVarP(&opts.Prompt, "prompt", "p", "", "Generation prompt used when the source file is missing")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "What the code is, used by gap analysis")
	return cmd
}

func reportForgeResult(cmd *cobra.Command, ctx *commandContext, result *forge.Result, runErr error) error {
	if runErr != nil {
		if errors.Is(runErr, forge.ErrLocked) {
			return fmt.Errorf("%w; another forge run is using this target", runErr)
		}
		if result != nil && result.RunID != "" {
			return fmt.Errorf("forge run %s failed (%s): %w", result.RunID, forge.ErrorKind(runErr), runErr)
		}
		return runErr
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range forgeResultLines(result, colorize) {
		fmt.Fprintln(out, line)
	}
	return nil
}

func forgeResultLines(result *forge.Result, colorize bool) []string {
	lines := renderSectionHeader("Forge "+textutil.Title(result.Mode)+" Run", colorize)
	lines = append(lines,
		renderStatusLine("Run", statusInfo, result.RunID, colorize),
		renderStatusLine("Status", runStatusKind(result.Status), runStatusLabel(result.Status), colorize),
		renderStatusLine("Target", statusInfo, result.Target, colorize),
		renderStatusLine("Iterations", statusInfo, strconv.Itoa(result.Iterations), colorize),
		renderStatusLine("Converged", statusInfo, yesNo(result.Converged), colorize),
		renderStatusLine("Files written", statusInfo, strconv.Itoa(result.FilesWritten), colorize),
	)
	if result.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, result.LogPath, colorize))
	}
	if analysis := strings.TrimSpace(result.Analysis); analysis != "" {
		lines = append(lines, "", "Gap analysis:", analysis)
	}
	return lines
}

func newForgeMergeCommand(ctx *commandContext) *cobra.Command {
	var originalPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "merge <variant> <variant>...",
		Short: "Merge several versions of the same code with the aggregator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants := make([]string, 0, len(args))
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read variant: %w", err)
				}
				variants = append(variants, string(content))
			}
			original := ""
			if strings.TrimSpace(originalPath) != "" {
				content, err := os.ReadFile(originalPath)
				if err != nil {
					return fmt.Errorf("read original: %w", err)
				}
				original = string(content)
			}
			return ctx.withRunner(cmd, func(_ *config.Config, runner *forge.Runner) error {
				merged, err := runner.Pipeline().MergeVariants(cmd.Context(), original, variants)
				if err != nil {
					return err
				}
				if strings.TrimSpace(outputPath) == "" {
					_, err := io.WriteString(cmd.OutOrStdout(), merged+"\n")
					return err
				}
				if err := os.WriteFile(outputPath, []byte(merged+"\n"), 0o644); err != nil {
					return fmt.Errorf("write merged output: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merged %d versions into %s\n", len(variants), outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&originalPath, "original", "", "The code the variants were derived from")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write the merged code here instead of stdout")
	return cmd
}

func newForgeStripFencesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "strip-fences <dir>",
		Short:       "Remove stray ``` lines from .html, .js, and .css files",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			changed, err := filebundle.StripFenceLines(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range changed {
				fmt.Fprintf(out, "Cleaned %s\n", path)
			}
			fmt.Fprintf(out, "%d files cleaned\n", len(changed))
			return nil
		},
	}
}

func newForgeRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded forge runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No forge runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Mode", "Status", "Iterations", "Started", "Target"},
					runRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	return cmd
}

func runRows(runs []*store.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortRunID(run.ID),
			run.Mode,
			runStatusLabel(run.Status),
			strconv.Itoa(run.Iterations),
			formatLocalTime(run.StartedAt),
			run.OutputDir,
		})
	}
	return rows
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newForgeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a forge run and its iterations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("forge run %q: %w", args[0], store.ErrNotFound)
				}
				iterations, err := st.RunIterations(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, struct {
						*store.Run
						IterationLog []*store.Iteration `json:"iteration_log"`
					}{run, iterations})
				}
				out := cmd.OutOrStdout()
				for _, line := range runDetailLines(run, iterations, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func runDetailLines(run *store.Run, iterations []*store.Iteration, colorize bool) []string {
	lines := renderSectionHeader("Forge Run "+shortRunID(run.ID), colorize)
	lines = append(lines,
		renderStatusLine("Run", statusInfo, run.ID, colorize),
		renderStatusLine("Mode", statusInfo, run.Mode, colorize),
		renderStatusLine("Status", runStatusKind(run.Status), runStatusLabel(run.Status), colorize),
		renderStatusLine("Subject", statusInfo, run.Subject, colorize),
		renderStatusLine("Target", statusInfo, run.OutputDir, colorize),
		renderStatusLine("Started", statusInfo, formatLocalTime(run.StartedAt), colorize),
	)
	if run.FinishedAt != nil {
		lines = append(lines, renderStatusLine("Finished", statusInfo, formatLocalTime(*run.FinishedAt), colorize))
	}
	if run.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}
	if len(iterations) == 0 {
		return lines
	}
	rows := make([][]string, 0, len(iterations))
	for _, it := range iterations {
		rows = append(rows, []string{
			strconv.Itoa(it.Iteration),
			strconv.Itoa(it.FilesWritten),
			yesNo(it.Changed),
			textutil.Snippet(it.GapAnalysis, descriptionColumnWidth),
		})
	}
	lines = append(lines, "", renderTable(
		[]string{"#", "Files", "Changed", "Gap analysis"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	))
	return lines
}
