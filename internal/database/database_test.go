package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBuildDSN(t *testing.T) {
	if got := buildDSN(":memory:"); got != ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn: %s", got)
	}
	if got := buildDSN("app.db?mode=rwc"); got != "app.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn: %s", got)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db); err != nil {
			t.Fatalf("Migrate #%d returned error: %v", i+1, err)
		}
	}

	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("failed to read pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatalf("foreign keys should be enabled, got %d", enabled)
	}
}

func TestConstraintDetection(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	insertUser := "INSERT INTO users (username, password_hash) VALUES (?, ?)"
	if _, err := db.ExecContext(ctx, insertUser, "chef", "hash"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err = db.ExecContext(ctx, insertUser, "chef", "hash")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsForeignKeyViolation(err) {
		t.Fatal("unique violation misdetected as foreign key violation")
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO recipes (title, instructions, user_id) VALUES (?, ?, ?)",
		"Orphan", "This recipe has no owner and should never be stored at all.", 999,
	)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
}
