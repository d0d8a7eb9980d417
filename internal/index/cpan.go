// Package index answers "which distribution carries this package" for
// the resolve workers, from the CPAN package index or a local mirror
// directory.
package index

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/my-mail-ru/cpm/internal/version"
)

const (
	packagesPath = "modules/02packages.details.txt.gz"
	cacheTTL     = 24 * time.Hour
)

// Entry is one row of the package index.
type Entry struct {
	Package  string
	Version  version.Version
	Distfile string
}

// CPAN looks packages up in a mirror's 02packages.details.txt.
type CPAN struct {
	mirror    string
	cacheDir  string
	cacheFile string
	client    *http.Client
	entries   map[string]Entry
}

// NewCPAN creates an index for the given mirror, caching under cacheDir.
func NewCPAN(mirror, cacheDir string) *CPAN {
	return &CPAN{
		mirror:    strings.TrimSuffix(mirror, "/"),
		cacheDir:  cacheDir,
		cacheFile: filepath.Join(cacheDir, "02packages.details.txt"),
		client:    &http.Client{},
		entries:   make(map[string]Entry),
	}
}

// Mirror returns the configured mirror URL.
func (c *CPAN) Mirror() string {
	return c.mirror
}

// Load makes the index ready, downloading a fresh copy when the cached
// one is stale.
func (c *CPAN) Load() error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if !c.cacheValid() {
		if err := c.download(); err != nil {
			return err
		}
	}
	return c.parse()
}

func (c *CPAN) cacheValid() bool {
	info, err := os.Stat(c.cacheFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < cacheTTL
}

func (c *CPAN) download() error {
	url := c.mirror + "/" + packagesPath

	resp, err := c.client.Get(url)
	if err != nil {
		return fmt.Errorf("downloading package index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading package index: HTTP %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("decompressing package index: %w", err)
	}
	defer gz.Close()

	out, err := os.Create(c.cacheFile)
	if err != nil {
		return fmt.Errorf("creating index cache: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, gz); err != nil {
		return fmt.Errorf("writing index cache: %w", err)
	}
	return nil
}

func (c *CPAN) parse() error {
	file, err := os.Open(c.cacheFile)
	if err != nil {
		return fmt.Errorf("opening index cache: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	inHeader := true
	for scanner.Scan() {
		line := scanner.Text()
		if inHeader {
			if line == "" {
				inHeader = false
			}
			continue
		}
		// Module::Name <ws> version <ws> A/AU/AUTHOR/Dist.tar.gz
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		c.entries[fields[0]] = Entry{
			Package:  fields[0],
			Version:  version.Parse(fields[1]),
			Distfile: fields[2],
		}
	}
	return scanner.Err()
}

// Search finds pkg and checks the indexed version against rng. found
// reports whether the index knows the package at all; ok whether the
// indexed version satisfies the range.
func (c *CPAN) Search(pkg string, rng version.Range) (entry Entry, found, ok bool) {
	entry, found = c.entries[pkg]
	if !found {
		return Entry{}, false, false
	}
	return entry, true, entry.Version.Satisfies(rng)
}

// DownloadURL returns the mirror URL of a distfile.
func (c *CPAN) DownloadURL(distfile string) string {
	return c.mirror + "/authors/id/" + distfile
}
