package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/logs"
	"atelier/internal/store"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log or a forge run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := resolveLogPath(cmd, ctx, cfg, strings.TrimSpace(runID))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Show the log of this forge run (id or unique prefix)")
	return cmd
}

func resolveLogPath(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, runID string) (string, error) {
	if runID == "" {
		path, err := logs.Latest(cfg.Paths.LogDir, logs.DaemonPattern)
		if errors.Is(err, logs.ErrNoLogs) {
			return "", fmt.Errorf("%w; start atelierd to create one", err)
		}
		return path, err
	}

	var path string
	err := ctx.withStore(func(cfg *config.Config, st *store.Store) error {
		run, err := st.GetRun(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("forge run %q: %w", runID, store.ErrNotFound)
		}
		path = logs.RunLogPath(cfg.Paths.LogDir, run.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("run log %s: %w (forge.log_runs may be disabled)", path, err)
	}
	return path, nil
}
