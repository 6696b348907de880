package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ifcquery/internal/persistence"
	"ifcquery/internal/persistence/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "nested", "snap.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store { return openTemp(t) })
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap.db")
	first, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := storetest.Sample("m1")
	if err := first.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	second, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	got, err := second.LoadSnapshot(ctx, "m1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	storetest.Equal(t, want, got)
	if n := got.CountOnFloor("IfcDoor", "Ground"); n != 1 {
		t.Fatalf("floor query over reloaded snapshot = %d", n)
	}
	if second.Path() != path {
		t.Fatalf("path %s", second.Path())
	}
}

func TestRowsAreNormalised(t *testing.T) {
	ctx := context.Background()
	store := openTemp(t)
	if err := store.SaveSnapshot(ctx, storetest.Sample("m1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	var n int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE model_id = ? AND storey_id = ?`, "m1", "gf").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("products on gf = %d", n)
	}
	var nulls int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM storeys WHERE elevation IS NULL`).Scan(&nulls); err != nil {
		t.Fatalf("count nulls: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("storeys without elevation = %d", nulls)
	}
}
