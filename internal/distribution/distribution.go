package distribution

import (
	"path/filepath"
	"strings"

	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

// Source identifies where a distribution comes from.
type Source string

const (
	SourceCPAN  Source = "cpan"
	SourceGit   Source = "git"
	SourceLocal Source = "local"
)

// Phase is a dependency phase of a distribution.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhaseBuild     Phase = "build"
	PhaseTest      Phase = "test"
	PhaseRuntime   Phase = "runtime"
)

// Provide is one package a distribution makes available.
type Provide struct {
	Package string
	Version version.Version
	Ref     string
}

// Meta is the subset of distribution metadata the scheduler consumes.
type Meta struct {
	Name    string
	Version string
}

// Distvname derives the display name from the metadata.
func (m Meta) Distvname() string {
	if m.Name == "" {
		return ""
	}
	name := strings.ReplaceAll(m.Name, "::", "-")
	if m.Version == "" {
		return name
	}
	return name + "-" + m.Version
}

// Distdata is the post-configure authoritative description of a
// distribution: what it is called and what it provides.
type Distdata struct {
	Distvname string
	Pathname  string
	Version   string
	Provides  []Provide
}

// Distribution tracks one distribution's progress through the pipeline.
// Stage flags are monotonic: resolved <= fetched <= configured <=
// installed, and setting a flag that is already set is a no-op.
//
// The registered latch marks that the current stage's follow-on job has
// been queued; the stage handler that promotes the distribution consumes
// it. depsRegistered is the per-stage one-shot latch for dependency
// resolve jobs and is consumed the same way.
type Distribution struct {
	Distfile string
	Source   Source
	URI      string
	Rev      string
	Ref      string

	resolved   bool
	fetched    bool
	configured bool
	installed  bool

	prebuilt       bool
	registered     bool
	depsRegistered bool

	Meta          Meta
	Provides      []Provide
	Directory     string
	Distdata      *Distdata
	StaticBuilder bool
	Features      []string

	distvname    string
	requirements map[Phase]*requirement.Collection
}

// New creates a distribution record for distfile.
func New(distfile string, source Source, uri string) *Distribution {
	return &Distribution{
		Distfile:     distfile,
		Source:       source,
		URI:          uri,
		requirements: make(map[Phase]*requirement.Collection),
	}
}

func (d *Distribution) Resolved() bool   { return d.resolved }
func (d *Distribution) Fetched() bool    { return d.fetched }
func (d *Distribution) Configured() bool { return d.configured }
func (d *Distribution) Installed() bool  { return d.installed }
func (d *Distribution) Prebuilt() bool   { return d.prebuilt }

// SetResolved marks the distribution resolved.
func (d *Distribution) SetResolved() { d.resolved = true }

// SetFetched marks the distribution fetched (and resolved).
func (d *Distribution) SetFetched() {
	d.resolved = true
	d.fetched = true
}

// SetConfigured marks the distribution configured (and fetched).
func (d *Distribution) SetConfigured() {
	d.SetFetched()
	d.configured = true
}

// SetInstalled marks the distribution installed (and configured).
func (d *Distribution) SetInstalled() {
	d.SetConfigured()
	d.installed = true
}

// SetPrebuilt records that the fetch produced an already-configured
// layout; such distributions bypass the configure stage.
func (d *Distribution) SetPrebuilt() { d.prebuilt = true }

// Registered reports whether the current stage's follow-on job is queued.
func (d *Distribution) Registered() bool { return d.registered }

// SetRegistered arms or consumes the per-stage job latch.
func (d *Distribution) SetRegistered(v bool) { d.registered = v }

// DepsRegistered reports whether dependency resolve jobs for the current
// stage have been enqueued.
func (d *Distribution) DepsRegistered() bool { return d.depsRegistered }

// SetDepsRegistered arms or consumes the per-stage dependency latch.
func (d *Distribution) SetDepsRegistered(v bool) { d.depsRegistered = v }

// Distvname returns the display name, falling back to a name derived
// from the distfile.
func (d *Distribution) Distvname() string {
	if d.distvname != "" {
		return d.distvname
	}
	return NameFromDistfile(d.Distfile)
}

// SetDistvname overrides the display name.
func (d *Distribution) SetDistvname(name string) {
	if name != "" {
		d.distvname = name
	}
}

// NameFromDistfile derives a display name from a distfile identifier:
// A/AU/AUTHOR/Dist-Name-1.23.tar.gz -> Dist-Name-1.23.
func NameFromDistfile(distfile string) string {
	base := filepath.Base(distfile)
	for _, suffix := range []string{".tar.gz", ".tgz", ".tar.bz2", ".zip", ".git"} {
		base = strings.TrimSuffix(base, suffix)
	}
	return base
}

// SetRequirements replaces the requirement collection for a phase.
func (d *Distribution) SetRequirements(phase Phase, entries []requirement.Entry) error {
	c, err := requirement.New(entries...)
	if err != nil {
		return err
	}
	if d.requirements == nil {
		d.requirements = make(map[Phase]*requirement.Collection)
	}
	d.requirements[phase] = c
	return nil
}

// RequirementsFor returns the collection for a phase, empty if absent.
func (d *Distribution) RequirementsFor(phase Phase) *requirement.Collection {
	if c, ok := d.requirements[phase]; ok {
		return c
	}
	c, _ := requirement.New()
	return c
}

// Requirements merges the given phases into a flat entry sequence.
func (d *Distribution) Requirements(phases ...Phase) ([]requirement.Entry, error) {
	merged, _ := requirement.New()
	for _, phase := range phases {
		if err := merged.Merge(d.RequirementsFor(phase)); err != nil {
			return nil, err
		}
	}
	return merged.Entries(), nil
}

// Providing reports whether the distribution provides pkg at a version
// satisfying rng, and matching ref when ref is non-empty.
func (d *Distribution) Providing(pkg string, rng version.Range, ref string) bool {
	for _, p := range d.Provides {
		if p.Package != pkg {
			continue
		}
		if ref != "" && p.Ref != ref {
			continue
		}
		if p.Version.Satisfies(rng) {
			return true
		}
	}
	return false
}

// MergeProvides folds additional provides into the record, keeping the
// existing entry when the package is already listed.
func (d *Distribution) MergeProvides(provides []Provide) {
	have := make(map[string]bool, len(d.Provides))
	for _, p := range d.Provides {
		have[p.Package] = true
	}
	for _, p := range provides {
		if !have[p.Package] {
			have[p.Package] = true
			d.Provides = append(d.Provides, p)
		}
	}
}
