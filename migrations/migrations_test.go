package migrations

import (
	"io/fs"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) < 1 {
		t.Fatal("expected embedded migrations")
	}
	if files[0] != "001_mobility_goal.sql" {
		t.Errorf("first migration = %s", files[0])
	}
}
