package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ifcquery/internal/blob/core"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s, root
}

func TestPutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	s, root := newStore(t)

	info, err := s.Put(ctx, "models/m1.json", strings.NewReader(`{"a":1}`), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"name": "office"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "models/m1.json" || info.Size != 7 || len(info.ETag) != 64 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "models", "m1.json.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if _, err := s.Put(ctx, "models/m1.json", strings.NewReader("{}"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	head, err := s.Head(ctx, "models/m1.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	got, rc, err := s.Get(ctx, "models/m1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"a":1}` || got.ETag != head.ETag || got.Metadata["name"] != "office" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}

	if _, err := s.Put(ctx, "exports/e1.csv", strings.NewReader("a,b\n"), core.PutOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("put export: %v", err)
	}
	list, err := s.List(ctx, "models/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "models/m1.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].Key != "exports/e1.csv" || all[1].Key != "models/m1.json" {
		t.Fatalf("list not ordered: %+v", all)
	}

	ok, err := s.Delete(ctx, "models/m1.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "models/m1.json"); ok {
		t.Fatal("second delete should report false")
	}
	if _, err := s.Head(ctx, "models/m1.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "models/m1.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverwriteReplacesContent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	first, _ := s.Put(ctx, "exports/x.json", strings.NewReader("1"), core.PutOptions{})
	second, err := s.Put(ctx, "exports/x.json", strings.NewReader("22"), core.PutOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if second.Size != 2 || second.ETag == first.ETag {
		t.Fatalf("overwrite not applied: %+v", second)
	}
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	for _, key := range []string{"", "/abs", "a/../../b", "models/x.meta"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestURLPointsAtFile(t *testing.T) {
	ctx := context.Background()
	s, root := newStore(t)
	u, err := s.URL(ctx, "exports/e.html", 0)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/exports/e.html") || !strings.Contains(u, filepath.ToSlash(filepath.Base(root))) {
		t.Fatalf("unexpected url %s", u)
	}
}

func TestCorruptSidecarSurfacesError(t *testing.T) {
	ctx := context.Background()
	s, root := newStore(t)
	if _, err := s.Put(ctx, "models/bad.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "models", "bad.json.meta"), []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := s.Head(ctx, "models/bad.json"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := s.List(ctx, ""); err == nil {
		t.Fatal("expected list error")
	}
}
