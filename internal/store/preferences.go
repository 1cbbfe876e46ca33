package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

func scanPreference(scanner rowScanner) (*Preference, error) {
	var (
		pref       Preference
		createdRaw string
	)
	if err := scanner.Scan(&pref.ID, &pref.StyleText, &createdRaw); err != nil {
		return nil, err
	}
	if ts, err := parseTimeString(createdRaw); err == nil {
		pref.CreatedAt = ts
	}
	return &pref, nil
}

// AddPreference records a style preference.
func (s *Store) AddPreference(ctx context.Context, styleText string) (*Preference, error) {
	styleText = strings.TrimSpace(styleText)
	if styleText == "" {
		return nil, errors.New("add preference: style text required")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"INSERT INTO preferences (style_text, created_at) VALUES (?, ?)",
		styleText, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert preference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Preference{ID: id, StyleText: styleText, CreatedAt: now}, nil
}

// ListPreferences returns preferences, newest first.
func (s *Store) ListPreferences(ctx context.Context, limit int) ([]*Preference, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, style_text, created_at FROM preferences ORDER BY created_at DESC, id DESC LIMIT ?",
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var out []*Preference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out = append(out, pref)
	}
	return out, rows.Err()
}

// LatestPreference returns the most recent preference or nil.
func (s *Store) LatestPreference(ctx context.Context) (*Preference, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, style_text, created_at FROM preferences ORDER BY created_at DESC, id DESC LIMIT 1")
	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest preference: %w", err)
	}
	return pref, nil
}
