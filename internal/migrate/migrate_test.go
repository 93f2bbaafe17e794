package migrate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRun_EmbeddedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := memDB(t)

	pending, err := Pending(ctx, db)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) == 0 || pending[0].Version != "0001" {
		t.Fatalf("Pending() = %+v, want 0001 first", pending)
	}

	n, err := Run(ctx, db, quiet())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != len(pending) {
		t.Errorf("Run() applied %d, want %d", n, len(pending))
	}

	n, err = Run(ctx, db, quiet())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Run() applied %d, want 0", n)
	}

	if _, err := db.Exec(`INSERT INTO last_reading (slot, created_at) VALUES (1, '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert into last_reading: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO last_reading (slot, created_at) VALUES (2, 'x')`); err == nil {
		t.Error("slot other than 1 accepted")
	}
}

func TestRun_OrderAndFailure(t *testing.T) {
	ctx := context.Background()
	db := memDB(t)

	fsys := fstest.MapFS{
		"sql/0002_add.sql":    {Data: []byte(`INSERT INTO items (name) VALUES ('second');`)},
		"sql/0001_create.sql": {Data: []byte(`CREATE TABLE items (name TEXT NOT NULL);`)},
		"sql/0003_broken.sql": {Data: []byte(`INSERT INTO nowhere VALUES (1);`)},
		"sql/README.md":       {Data: []byte(`ignored`)},
	}

	n, err := run(ctx, db, fsys, quiet())
	if err == nil {
		t.Fatal("run() error = nil, want failure on 0003")
	}
	if !strings.Contains(err.Error(), "0003_broken.sql") {
		t.Errorf("error = %v, want file name", err)
	}
	if n != 2 {
		t.Errorf("applied = %d, want 2", n)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + tableName).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("recorded migrations = %d, want 2", count)
	}
}

func TestLoad_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0001_a.sql": {Data: []byte(`SELECT 1;`)},
		"sql/0001_b.sql": {Data: []byte(`SELECT 1;`)},
	}
	if _, err := load(fsys); err == nil {
		t.Fatal("load() error = nil for duplicate version")
	}
}
