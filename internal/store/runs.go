package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const runColumns = "run_id, subject, output_dir, mode, status, iterations, converged, error_message, started_at, finished_at"

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		converged   int
		errMsg      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Subject, &run.OutputDir, &run.Mode, &status, &run.Iterations, &converged, &errMsg, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Converged = converged != 0
	run.ErrorMessage = errMsg.String
	if ts, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = ts
	}
	if finishedRaw.Valid {
		if ts, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &ts
		}
	}
	return &run, nil
}

// StartRun inserts a running forge run. A blank ID is replaced with a new UUID.
func (s *Store) StartRun(ctx context.Context, run Run) (*Run, error) {
	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if strings.TrimSpace(run.OutputDir) == "" {
		return nil, errors.New("start run: output dir required")
	}
	if run.Mode == "" {
		run.Mode = ModeIterative
	}
	run.Status = RunRunning
	run.StartedAt = time.Now().UTC()
	run.Iterations = 0
	run.Converged = false
	run.FinishedAt = nil
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO forge_runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, 0, 0, NULL, ?, NULL)",
		run.ID, run.Subject, run.OutputDir, run.Mode, string(run.Status), formatTime(run.StartedAt),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

// RecordIteration stores an iteration and bumps the run's iteration count.
func (s *Store) RecordIteration(ctx context.Context, it Iteration) error {
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin iteration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "UPDATE forge_runs SET iterations = MAX(iterations, ?) WHERE run_id = ?", it.Iteration, it.RunID)
	if err != nil {
		return fmt.Errorf("update run iterations: %w", err)
	}
	if err := requireAffected(res, "record iteration "+it.RunID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO forge_iterations (run_id, iteration, gap_analysis, files_written, changed, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, iteration) DO UPDATE SET
            gap_analysis = excluded.gap_analysis,
            files_written = excluded.files_written,
            changed = excluded.changed`,
		it.RunID, it.Iteration, it.GapAnalysis, it.FilesWritten, boolToInt(it.Changed), formatTime(it.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit iteration: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, converged bool, errorMessage string) error {
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"UPDATE forge_runs SET status = ?, converged = ?, error_message = ?, finished_at = ? WHERE run_id = ?",
		string(status), boolToInt(converged), nullableString(errorMessage), nullableTime(&now), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return requireAffected(res, "finish run "+runID)
}

// GetRun returns a run by ID, or nil when absent. Unambiguous ID prefixes are accepted.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM forge_runs WHERE run_id = ? OR run_id LIKE ? ORDER BY run_id = ? DESC LIMIT 2",
		runID, stripLikeWildcards(runID)+"%", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, nil
	case matches[0].ID == runID || len(matches) == 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("get run: prefix %q is ambiguous", runID)
	}
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM forge_runs ORDER BY started_at DESC LIMIT ?",
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// RunIterations returns a run's iterations in order.
func (s *Store) RunIterations(ctx context.Context, runID string) ([]*Iteration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, iteration, gap_analysis, files_written, changed, created_at FROM forge_iterations WHERE run_id = ? ORDER BY iteration",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []*Iteration
	for rows.Next() {
		var (
			it         Iteration
			changed    int
			createdRaw string
		)
		if err := rows.Scan(&it.RunID, &it.Iteration, &it.GapAnalysis, &it.FilesWritten, &changed, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.Changed = changed != 0
		if ts, err := parseTimeString(createdRaw); err == nil {
			it.CreatedAt = ts
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func stripLikeWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
