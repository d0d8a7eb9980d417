// Package resolver maps a package requirement to a concrete
// distribution, consulting a git remote, the local mirror and the CPAN
// index in that order of specificity.
package resolver

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/index"
	"github.com/my-mail-ru/cpm/internal/version"
)

// Resolution names the distribution that will satisfy a requirement.
type Resolution struct {
	Distfile string
	Source   distribution.Source
	URI      string
	Version  string
	Rev      string
}

// Resolver answers resolve jobs from the configured indexes.
type Resolver struct {
	cpan  *index.CPAN
	local *index.Local
}

// New creates a resolver over the given indexes. Either may be nil.
func New(cpan *index.CPAN, local *index.Local) *Resolver {
	return &Resolver{cpan: cpan, local: local}
}

// Resolve finds a distribution for pkg within rng.
func (r *Resolver) Resolve(pkg string, rng version.Range) (*Resolution, error) {
	if r.local != nil {
		if entry, ok := r.local.Search(pkg, rng); ok {
			return &Resolution{
				Distfile: entry.Distfile,
				Source:   distribution.SourceLocal,
				URI:      entry.Distfile,
				Version:  entry.Version.String(),
			}, nil
		}
	}
	if r.cpan != nil {
		entry, found, ok := r.cpan.Search(pkg, rng)
		if found && !ok {
			return nil, fmt.Errorf("%s %s does not satisfy %s", pkg, entry.Version, rng)
		}
		if found {
			return &Resolution{
				Distfile: entry.Distfile,
				Source:   distribution.SourceCPAN,
				URI:      r.cpan.DownloadURL(entry.Distfile),
				Version:  entry.Version.String(),
			}, nil
		}
	}
	return nil, fmt.Errorf("%s not found in any index", pkg)
}

// ResolveGit pins a git requirement to a commit via ls-remote, so two
// workers fetching the same requirement agree on the revision.
func (r *Resolver) ResolveGit(uri, ref string) (*Resolution, error) {
	target := "HEAD"
	if ref != "" {
		target = ref
	}

	var out bytes.Buffer
	cmd := exec.Command("git", "ls-remote", uri, target)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-remote %s: %w", uri, err)
	}

	rev := ""
	for _, line := range strings.Split(out.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 1 && fields[0] != "" {
			rev = fields[0]
			break
		}
	}
	if rev == "" {
		// a raw commit hash never appears in ls-remote output; trust it
		if looksLikeCommit(ref) {
			rev = ref
		} else {
			return nil, fmt.Errorf("ref %q not found in %s", ref, uri)
		}
	}

	return &Resolution{
		Distfile: uri,
		Source:   distribution.SourceGit,
		URI:      uri,
		Rev:      rev,
	}, nil
}

func looksLikeCommit(ref string) bool {
	if len(ref) < 7 || len(ref) > 40 {
		return false
	}
	for _, c := range ref {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
