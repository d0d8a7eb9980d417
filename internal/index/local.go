package index

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/my-mail-ru/cpm/internal/version"
)

// Local indexes a directory of distribution tarballs, backing the
// "local" source. Tarball names are read as Dist-Name-1.23.tar.gz and
// the main package is derived from the dist name.
type Local struct {
	dir     string
	entries map[string][]Entry
}

// NewLocal creates an index over dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir, entries: make(map[string][]Entry)}
}

// Dir returns the indexed directory.
func (l *Local) Dir() string {
	return l.dir
}

var distNameRe = regexp.MustCompile(`^(.+)-(v?[0-9][0-9._]*)$`)

// Load scans the directory. Missing directories are not an error; the
// index is simply empty.
func (l *Local) Load() error {
	files, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading local mirror %s: %w", l.dir, err)
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		base := name
		trimmed := false
		for _, suffix := range []string{".tar.gz", ".tgz", ".tar.bz2", ".zip"} {
			if strings.HasSuffix(base, suffix) {
				base = strings.TrimSuffix(base, suffix)
				trimmed = true
				break
			}
		}
		if !trimmed {
			continue
		}
		m := distNameRe.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		pkg := strings.ReplaceAll(m[1], "-", "::")
		entry := Entry{
			Package:  pkg,
			Version:  version.Parse(m[2]),
			Distfile: filepath.Join(l.dir, name),
		}
		l.entries[pkg] = append(l.entries[pkg], entry)
	}
	return nil
}

// Search finds the best local candidate for pkg: the highest indexed
// version that satisfies rng.
func (l *Local) Search(pkg string, rng version.Range) (Entry, bool) {
	var best Entry
	found := false
	for _, entry := range l.entries[pkg] {
		if !entry.Version.Satisfies(rng) {
			continue
		}
		if !found || best.Version.Compare(entry.Version) < 0 {
			best = entry
			found = true
		}
	}
	return best, found
}
