package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const clothingColumns = "id, image_filename, description, upload_time"

func scanClothing(scanner rowScanner) (*Clothing, error) {
	var (
		item      Clothing
		uploadRaw string
	)
	if err := scanner.Scan(&item.ID, &item.ImageFilename, &item.Description, &uploadRaw); err != nil {
		return nil, err
	}
	if ts, err := parseTimeString(uploadRaw); err == nil {
		item.UploadTime = ts
	}
	return &item, nil
}

// AddClothing records an uploaded photo and its description.
func (s *Store) AddClothing(ctx context.Context, imageFilename, description string) (*Clothing, error) {
	imageFilename = strings.TrimSpace(imageFilename)
	if imageFilename == "" {
		return nil, errors.New("add clothing: image filename required")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"INSERT INTO clothes (image_filename, description, upload_time) VALUES (?, ?, ?)",
		imageFilename, description, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert clothing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetClothing(ctx, id)
}

// GetClothing fetches a single item by ID.
func (s *Store) GetClothing(ctx context.Context, id int64) (*Clothing, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+clothingColumns+" FROM clothes WHERE id = ?", id)
	item, err := scanClothing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clothing %d: %w", id, err)
	}
	return item, nil
}

// ListClothes returns every item, newest upload first.
func (s *Store) ListClothes(ctx context.Context) ([]*Clothing, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+clothingColumns+" FROM clothes ORDER BY upload_time DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list clothes: %w", err)
	}
	defer rows.Close()

	var items []*Clothing
	for rows.Next() {
		item, err := scanClothing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clothing: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Descriptions returns the non-empty descriptions of all items in upload order.
func (s *Store) Descriptions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT description FROM clothes ORDER BY upload_time ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list descriptions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var desc string
		if err := rows.Scan(&desc); err != nil {
			return nil, fmt.Errorf("scan description: %w", err)
		}
		if desc = strings.TrimSpace(desc); desc != "" {
			out = append(out, desc)
		}
	}
	return out, rows.Err()
}

// UpdateClothingDescription replaces the stored description.
func (s *Store) UpdateClothingDescription(ctx context.Context, id int64, description string) error {
	res, err := s.execWithRetry(ctx, "UPDATE clothes SET description = ? WHERE id = ?", description, id)
	if err != nil {
		return fmt.Errorf("update clothing %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("update clothing %d", id))
}

// DeleteClothing removes the row. The caller owns removing the image file.
func (s *Store) DeleteClothing(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM clothes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete clothing %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("delete clothing %d", id))
}
