package stores

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hetulpatel/arbscanner/internal/storage/memory"
	"github.com/hetulpatel/arbscanner/internal/storage/sqlite"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Fatalf("memory driver returned %T", s)
	}

	path := filepath.Join(t.TempDir(), "arb.db")
	s, err = Open(ctx, Options{Driver: "SQLite", SQLitePath: path, RunMigrations: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	sq, ok := s.(*sqlite.Store)
	if !ok || sq.Path() != path {
		t.Fatalf("sqlite driver returned %T", s)
	}
	if _, err := s.ListOpportunities(ctx); err != nil {
		t.Fatalf("migrated store should be queryable: %v", err)
	}

	if _, err := Open(ctx, Options{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
