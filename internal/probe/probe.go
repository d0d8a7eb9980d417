// Package probe is the installed-module oracle: it inspects the
// filesystem to determine which module versions are already present.
package probe

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/my-mail-ru/cpm/internal/version"
)

// Info describes a module found on disk.
type Info struct {
	Package  string
	Version  version.Version
	Filename string
	// Core is true when the module was found under a core directory.
	Core bool
}

// Oracle looks up installed modules in an ordered list of search
// directories, optionally classifying hits under core directories.
type Oracle struct {
	searchINC []string
	coreINC   []string
}

// New creates an oracle over the given search and core directories.
func New(searchINC, coreINC []string) *Oracle {
	return &Oracle{searchINC: searchINC, coreINC: coreINC}
}

// Probe locates pkg and extracts its version. Directories are consulted
// in order; the first hit wins.
func (o *Oracle) Probe(pkg string) (*Info, bool) {
	rel := filepath.Join(strings.Split(pkg, "::")...) + ".pm"

	for _, dir := range o.searchINC {
		if info := o.probeFile(pkg, filepath.Join(dir, rel), false); info != nil {
			return info, true
		}
	}
	for _, dir := range o.coreINC {
		if info := o.probeFile(pkg, filepath.Join(dir, rel), true); info != nil {
			return info, true
		}
	}
	return nil, false
}

func (o *Oracle) probeFile(pkg, path string, core bool) *Info {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return &Info{
		Package:  pkg,
		Version:  ParseVersionFrom(path, pkg),
		Filename: path,
		Core:     core,
	}
}

var versionLineRe = regexp.MustCompile(
	`(?:our\s+)?\$(?:[\w:]+::)?VERSION\s*=\s*['"]?(v?[0-9][0-9._]*)['"]?`)

// ParseVersionFrom scans a module file for its $VERSION assignment. A
// module without one reports the version undef, which satisfies any
// range.
func ParseVersionFrom(path, pkg string) version.Version {
	file, err := os.Open(path)
	if err != nil {
		return version.Parse("undef")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		// stop at the documentation; $VERSION never follows it
		if strings.HasPrefix(line, "__END__") || strings.HasPrefix(line, "__DATA__") {
			break
		}
		if m := versionLineRe.FindStringSubmatch(line); m != nil {
			return version.Parse(m[1])
		}
	}
	return version.Parse("undef")
}
