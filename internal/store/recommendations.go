package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recommendationColumns = "id, outfit_description, reason, generated_image, preference_id, created_at"

func scanRecommendation(scanner rowScanner) (*Recommendation, error) {
	var (
		rec        Recommendation
		image      sql.NullString
		prefID     sql.NullInt64
		createdRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.OutfitDescription, &rec.Reason, &image, &prefID, &createdRaw); err != nil {
		return nil, err
	}
	rec.GeneratedImage = image.String
	rec.PreferenceID = prefID.Int64
	if ts, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = ts
	}
	return &rec, nil
}

// AddRecommendation stores a generated outfit. CreatedAt defaults to now.
func (s *Store) AddRecommendation(ctx context.Context, rec Recommendation) (*Recommendation, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		"INSERT INTO recommendations (outfit_description, reason, generated_image, preference_id, created_at) VALUES (?, ?, ?, ?, ?)",
		rec.OutfitDescription, rec.Reason, nullableString(rec.GeneratedImage), nullableInt64(rec.PreferenceID), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// LatestRecommendation returns the newest recommendation or nil.
func (s *Store) LatestRecommendation(ctx context.Context) (*Recommendation, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recommendationColumns+" FROM recommendations ORDER BY created_at DESC, id DESC LIMIT 1")
	rec, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest recommendation: %w", err)
	}
	return rec, nil
}

// ListRecommendations returns up to limit recommendations, newest first.
func (s *Store) ListRecommendations(ctx context.Context, limit int) ([]*Recommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recommendationColumns+" FROM recommendations ORDER BY created_at DESC, id DESC LIMIT ?",
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []*Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
