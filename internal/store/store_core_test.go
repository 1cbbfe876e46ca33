package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestPragmasApplyToEveryConnection(t *testing.T) {
	st, err := OpenPath(filepath.Join(t.TempDir(), "atelier.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	// Hold two connections at once so the pool has to open a second one.
	first, err := st.db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer first.Close()
	second, err := st.db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var timeout, fk int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d foreign_keys: %v", i, err)
		}
		if timeout != 5000 || fk != 1 {
			t.Fatalf("conn %d: busy_timeout=%d foreign_keys=%d", i, timeout, fk)
		}
	}
}
