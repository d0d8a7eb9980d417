package requirement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/my-mail-ru/cpm/internal/version"
)

// Options carries the non-version constraints of a requirement entry:
// an alternate git source, a ref within it, and requested features.
type Options struct {
	Git      string
	Ref      string
	Features []string
}

// Clone returns a deep copy of o; nil stays nil.
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	c := *o
	c.Features = append([]string(nil), o.Features...)
	return &c
}

// Entry is one requirement: a package name with a version range and
// optional source options. Package names are case-sensitive literals.
type Entry struct {
	Package string
	Range   version.Range
	Options *Options
}

func (e Entry) String() string {
	s := e.Package
	if !e.Range.IsAny() {
		s += " (" + e.Range.String() + ")"
	}
	return s
}

// Collection is an ordered sequence of entries with package uniqueness.
// Iteration order is insertion order.
type Collection struct {
	entries []Entry
	index   map[string]int
}

// New builds a collection from the given entries. If any entry fails to
// merge, none of them is added: the returned collection is empty and the
// error describes the first failure.
func New(entries ...Entry) (*Collection, error) {
	c := &Collection{index: make(map[string]int)}
	if err := c.Add(entries...); err != nil {
		return c, err
	}
	return c, nil
}

// Add merges each entry into the collection. On a range intersection
// failure nothing is mutated and the error describes the conflict.
func (c *Collection) Add(entries ...Entry) error {
	if c.index == nil {
		c.index = make(map[string]int)
	}

	// stage the whole batch so a failure leaves the collection intact
	staged := append([]Entry(nil), c.entries...)
	stagedIndex := make(map[string]int, len(c.index))
	for k, v := range c.index {
		stagedIndex[k] = v
	}

	for _, e := range entries {
		i, ok := stagedIndex[e.Package]
		if !ok {
			stagedIndex[e.Package] = len(staged)
			staged = append(staged, Entry{Package: e.Package, Range: e.Range, Options: e.Options.Clone()})
			continue
		}
		merged, err := mergeEntry(staged[i], e)
		if err != nil {
			return err
		}
		staged[i] = merged
	}

	c.entries = staged
	c.index = stagedIndex
	return nil
}

func mergeEntry(have, add Entry) (Entry, error) {
	rng, err := version.Merge(have.Range, add.Range)
	if err != nil {
		return Entry{}, fmt.Errorf("Couldn't merge version range %s with %s for package %s",
			have.Range, add.Range, have.Package)
	}
	opts := have.Options.Clone()
	if add.Options != nil {
		if opts == nil {
			opts = &Options{}
		}
		if opts.Ref != "" && add.Options.Ref != "" && opts.Ref != add.Options.Ref {
			return Entry{}, fmt.Errorf("Couldn't merge ref %s with %s for package %s",
				opts.Ref, add.Options.Ref, have.Package)
		}
		if opts.Ref == "" {
			opts.Ref = add.Options.Ref
		}
		if opts.Git == "" {
			opts.Git = add.Options.Git
		}
		opts.Features = unionFeatures(opts.Features, add.Options.Features)
	}
	return Entry{Package: have.Package, Range: rng, Options: opts}, nil
}

func unionFeatures(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, f := range append(append([]string(nil), a...), b...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Merge adds every entry of other into c.
func (c *Collection) Merge(other *Collection) error {
	if other == nil {
		return nil
	}
	return c.Add(other.entries...)
}

// Has reports whether the collection contains pkg.
func (c *Collection) Has(pkg string) bool {
	_, ok := c.index[pkg]
	return ok
}

// Get returns the entry for pkg.
func (c *Collection) Get(pkg string) (Entry, bool) {
	i, ok := c.index[pkg]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Delete removes the entries for the given packages.
func (c *Collection) Delete(pkgs ...string) {
	drop := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		drop[p] = true
	}
	var kept []Entry
	for _, e := range c.entries {
		if !drop[e.Package] {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	c.index = make(map[string]int, len(kept))
	for i, e := range kept {
		c.index[e.Package] = i
	}
}

// Empty reports whether the collection has no entries.
func (c *Collection) Empty() bool {
	return len(c.entries) == 0
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.entries)
}

// Entries returns the entries in insertion order. The slice is a copy;
// mutating it does not affect the collection.
func (c *Collection) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

func (c *Collection) String() string {
	ss := make([]string, len(c.entries))
	for i, e := range c.entries {
		ss[i] = e.String()
	}
	return strings.Join(ss, ", ")
}
