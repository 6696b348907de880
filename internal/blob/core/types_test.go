package core

import (
	"errors"
	"testing"
)

func TestCleanKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"models/a.json", "models/a.json", true},
		{"exports//b.csv", "exports/b.csv", true},
		{`exports\c.html`, "exports/c.html", true},
		{"./models/a.json", "models/a.json", true},
		{"", "", false},
		{"   ", "", false},
		{"/etc/passwd", "", false},
		{"models/../../x", "", false},
		{"..", "", false},
	}
	for _, tc := range cases {
		got, err := CleanKey(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("CleanKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("CleanKey(%q) expected ErrInvalidKey, got %v", tc.in, err)
		}
	}
}

func TestCloneMetadata(t *testing.T) {
	if CloneMetadata(nil) != nil || CloneMetadata(map[string]string{}) != nil {
		t.Fatal("empty metadata should clone to nil")
	}
	in := map[string]string{"model": "m1"}
	out := CloneMetadata(in)
	out["model"] = "changed"
	if in["model"] != "m1" {
		t.Fatal("clone aliases input")
	}
}
