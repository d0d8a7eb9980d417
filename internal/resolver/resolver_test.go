package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/index"
	"github.com/my-mail-ru/cpm/internal/version"
)

func localIndex(t *testing.T, names ...string) *index.Local {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	l := index.NewLocal(dir)
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestResolveFromLocalMirror(t *testing.T) {
	r := New(nil, localIndex(t, "My-App-1.5.tar.gz"))

	res, err := r.Resolve("My::App", version.ParseRange(">= 1.0"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != distribution.SourceLocal {
		t.Errorf("source = %s, want local", res.Source)
	}
	if res.Version != "1.5" {
		t.Errorf("version = %s, want 1.5", res.Version)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(nil, localIndex(t))
	if _, err := r.Resolve("No::Such", version.AnyRange()); err == nil {
		t.Error("unresolvable package must error")
	}
}

func TestResolveRangeMismatch(t *testing.T) {
	r := New(nil, localIndex(t, "My-App-1.5.tar.gz"))
	if _, err := r.Resolve("My::App", version.ParseRange(">= 2.0")); err == nil {
		t.Error("a local candidate outside the range must not resolve")
	}
}

func TestLooksLikeCommit(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"0123abcd", true},
		{"d6e3a2b1c4f5e6d7a8b9c0d1e2f3a4b5c6d7e8f9", true},
		{"main", false},
		{"v1.0.0", false},
		{"abc", false},
	}
	for _, tt := range tests {
		if got := looksLikeCommit(tt.ref); got != tt.want {
			t.Errorf("looksLikeCommit(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}
