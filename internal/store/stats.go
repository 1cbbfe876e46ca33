package store

import (
	"context"
	"fmt"
)

// Stats counts rows in each catalogue table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	targets := []struct {
		table string
		dst   *int
	}{
		{"clothes", &stats.Clothes},
		{"preferences", &stats.Preferences},
		{"recommendations", &stats.Recommendations},
		{"forge_runs", &stats.Runs},
	}
	for _, target := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+target.table).Scan(target.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", target.table, err)
		}
	}
	return stats, nil
}
