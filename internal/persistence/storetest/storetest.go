// Package storetest runs the behaviour every persistence.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ifcquery/internal/persistence"
)

func elevation(v float64) *float64 { return &v }

// Sample returns a small snapshot for modelID.
func Sample(modelID string) persistence.Snapshot {
	return persistence.Snapshot{
		ModelID: modelID,
		Project: persistence.Project{ID: "p-" + modelID, Name: "Project " + modelID, Schema: "IFC4", Description: "sample"},
		Storeys: []persistence.Storey{
			{ID: "gf", Name: "Ground", Elevation: elevation(0), Position: 0},
			{ID: "l1", Name: "Level 1", Elevation: elevation(3.25), Position: 1},
			{ID: "roof", Name: "Roof", Position: 2},
		},
		Products: []persistence.Product{
			{ID: "w1", Type: "IfcWall", Name: "W1", StoreyID: "gf", Step: "containment"},
			{ID: "d1", Type: "IfcDoor", Name: "D1", StoreyID: "gf", SpaceID: "hall", Step: "space"},
			{ID: "o1", Type: "IfcOutlet", Name: "O1", StoreyID: "l1", Step: "reference"},
			{ID: "x1", Type: "IfcPump", Name: "Loose", Step: "unassigned"},
		},
		CreatedAt: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}
}

// Run exercises open against the shared store contract. open must return
// an empty store.
func Run(t *testing.T, open func(t *testing.T) persistence.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := open(t)
		want := Sample("m1")
		if err := store.SaveSnapshot(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := store.LoadSnapshot(ctx, "m1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		Equal(t, want, got)
	})

	t.Run("missing", func(t *testing.T) {
		store := open(t)
		if _, err := store.LoadSnapshot(ctx, "absent"); !errors.Is(err, persistence.ErrSnapshotNotFound) {
			t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
		}
		if ok, err := store.DeleteSnapshot(ctx, "absent"); err != nil || ok {
			t.Fatalf("delete absent: %v %v", ok, err)
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		store := open(t)
		if err := store.SaveSnapshot(ctx, Sample("m1")); err != nil {
			t.Fatalf("save: %v", err)
		}
		next := Sample("m1")
		next.Products = next.Products[:1]
		next.Storeys = next.Storeys[:1]
		next.Project.Name = "Renamed"
		if err := store.SaveSnapshot(ctx, next); err != nil {
			t.Fatalf("resave: %v", err)
		}
		got, err := store.LoadSnapshot(ctx, "m1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		Equal(t, next, got)
	})

	t.Run("list and delete", func(t *testing.T) {
		store := open(t)
		for _, id := range []string{"m2", "m1"} {
			if err := store.SaveSnapshot(ctx, Sample(id)); err != nil {
				t.Fatalf("save %s: %v", id, err)
			}
		}
		list, err := store.ListSnapshots(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ModelID != "m1" || list[1].ModelID != "m2" {
			t.Fatalf("list not ordered by model id: %+v", list)
		}
		if list[0].Products != 4 || list[0].Storeys != 3 || list[0].ProjectName != "Project m1" {
			t.Fatalf("summary %+v", list[0])
		}
		ok, err := store.DeleteSnapshot(ctx, "m1")
		if err != nil || !ok {
			t.Fatalf("delete: %v %v", ok, err)
		}
		if _, err := store.LoadSnapshot(ctx, "m1"); !errors.Is(err, persistence.ErrSnapshotNotFound) {
			t.Fatalf("expected deleted snapshot to be gone, got %v", err)
		}
		if other, err := store.LoadSnapshot(ctx, "m2"); err != nil || len(other.Products) != 4 {
			t.Fatalf("delete touched other model: %v", err)
		}
	})

	t.Run("empty model id", func(t *testing.T) {
		store := open(t)
		if err := store.SaveSnapshot(ctx, persistence.Snapshot{}); err == nil {
			t.Fatal("expected error for empty model id")
		}
	})
}

// Equal compares snapshots field by field.
func Equal(t *testing.T, want, got persistence.Snapshot) {
	t.Helper()
	if got.ModelID != want.ModelID || got.Project != want.Project {
		t.Fatalf("header mismatch: want %+v got %+v", want.Project, got.Project)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if len(got.Storeys) != len(want.Storeys) {
		t.Fatalf("storeys %d, want %d", len(got.Storeys), len(want.Storeys))
	}
	for i := range want.Storeys {
		w, g := want.Storeys[i], got.Storeys[i]
		if w.ID != g.ID || w.Name != g.Name || w.Position != g.Position || (w.Elevation == nil) != (g.Elevation == nil) {
			t.Fatalf("storey %d: want %+v got %+v", i, w, g)
		}
		if w.Elevation != nil && *w.Elevation != *g.Elevation {
			t.Fatalf("storey %d elevation %v, want %v", i, *g.Elevation, *w.Elevation)
		}
	}
	if len(got.Products) != len(want.Products) {
		t.Fatalf("products %d, want %d", len(got.Products), len(want.Products))
	}
	for i := range want.Products {
		if want.Products[i] != got.Products[i] {
			t.Fatalf("product %d: want %+v got %+v", i, want.Products[i], got.Products[i])
		}
	}
}
