package fetch

import (
	"archive/tar"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func makeTarball(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLocalFileUnpacks(t *testing.T) {
	tmp := t.TempDir()
	tarball := filepath.Join(tmp, "Foo-1.0.tar.gz")
	makeTarball(t, tarball, map[string]string{
		"Foo-1.0/META.json":      `{"name":"Foo","version":"1.0"}`,
		"Foo-1.0/lib/Foo.pm":     "package Foo;\n1;\n",
		"../escape-attempt":      "nope",
	})

	f := New(filepath.Join(tmp, "cache"), filepath.Join(tmp, "work"))
	dir, err := f.LocalFile(tarball)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != "Foo-1.0" {
		t.Errorf("unpacked dir = %s, want .../Foo-1.0", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "META.json")); err != nil {
		t.Errorf("META.json missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "..", "escape-attempt")); err == nil {
		t.Error("path traversal entry must not be extracted")
	}
}

func TestTarballDownloadAndCache(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.tar.gz")
	makeTarball(t, src, map[string]string{"Bar-2.0/META.json": `{"name":"Bar","version":"2.0"}`})
	payload, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(payload)
	}))
	defer server.Close()

	f := New(filepath.Join(tmp, "cache"), filepath.Join(tmp, "work"))

	dir, cached, err := f.Tarball(server.URL+"/Bar-2.0.tar.gz", "B/BA/BAR/Bar-2.0.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("first fetch must hit the network")
	}
	if filepath.Base(dir) != "Bar-2.0" {
		t.Errorf("dir = %s", dir)
	}

	_, cached, err = f.Tarball(server.URL+"/Bar-2.0.tar.gz", "B/BA/BAR/Bar-2.0.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if !cached {
		t.Error("second fetch must use the cache")
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

func TestTarballHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	tmp := t.TempDir()
	f := New(filepath.Join(tmp, "cache"), filepath.Join(tmp, "work"))
	if _, _, err := f.Tarball(server.URL+"/missing.tar.gz", "M/MI/MISSING/missing.tar.gz"); err == nil {
		t.Error("HTTP 404 must fail the fetch")
	}
}
