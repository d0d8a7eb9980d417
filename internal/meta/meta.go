// Package meta decodes CPAN distribution metadata (META.json, META.yml
// and their MYMETA variants) into the requirement structures the
// scheduler consumes.
package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

// FlexVersion handles JSON/YAML values that can be string or number.
type FlexVersion string

func (v *FlexVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FlexVersion(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = FlexVersion(fmt.Sprintf("%g", f))
		return nil
	}
	*v = "0"
	return nil
}

func (v *FlexVersion) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		*v = FlexVersion(s)
		return nil
	}
	var f float64
	if err := node.Decode(&f); err == nil {
		*v = FlexVersion(fmt.Sprintf("%g", f))
		return nil
	}
	*v = "0"
	return nil
}

// ProvidesEntry is one module a distribution declares it provides.
type ProvidesEntry struct {
	File    string      `json:"file" yaml:"file"`
	Version FlexVersion `json:"version" yaml:"version"`
}

// File is the decoded content of a META or MYMETA file.
type File struct {
	Name     FlexVersion                       `json:"name" yaml:"name"`
	Version  FlexVersion                       `json:"version" yaml:"version"`
	Provides map[string]ProvidesEntry          `json:"provides" yaml:"provides"`
	Prereqs  map[string]map[string]interface{} `json:"prereqs" yaml:"prereqs"`

	// META 1.x format fields
	Requires          map[string]interface{} `json:"requires" yaml:"requires"`
	BuildRequires     map[string]interface{} `json:"build_requires" yaml:"build_requires"`
	ConfigureRequires map[string]interface{} `json:"configure_requires" yaml:"configure_requires"`
}

// Load reads the preferred metadata file from an unpacked distribution
// directory. Files are tried in the order MYMETA.json, META.json,
// MYMETA.yml, META.yml; the first one found is used.
func Load(dir string) (*File, error) {
	for _, name := range []string{"MYMETA.json", "META.json"} {
		if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			return ParseJSON(data)
		}
	}
	for _, name := range []string{"MYMETA.yml", "META.yml"} {
		if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			return ParseYAML(data)
		}
	}
	return nil, fmt.Errorf("no META.json or META.yml found in %s", dir)
}

// ParseJSON decodes a META.json document.
func ParseJSON(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing META.json: %w", err)
	}
	return &f, nil
}

// ParseYAML decodes a META.yml document.
func ParseYAML(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing META.yml: %w", err)
	}
	return &f, nil
}

// Meta returns the scheduler-facing name/version pair.
func (f *File) Meta() distribution.Meta {
	return distribution.Meta{Name: string(f.Name), Version: string(f.Version)}
}

// ProvideList converts the provides section, sorted by package name.
func (f *File) ProvideList() []distribution.Provide {
	provides := make([]distribution.Provide, 0, len(f.Provides))
	for pkg, entry := range f.Provides {
		provides = append(provides, distribution.Provide{
			Package: pkg,
			Version: version.Parse(string(entry.Version)),
		})
	}
	sort.Slice(provides, func(i, j int) bool { return provides[i].Package < provides[j].Package })
	return provides
}

// Requirements maps the declared prerequisites onto dependency phases.
// The META 2.0 prereqs section wins; the 1.x fields are read only when
// no 2.0 phase yields any requirements.
func (f *File) Requirements() map[distribution.Phase][]requirement.Entry {
	out := make(map[distribution.Phase][]requirement.Entry)

	phases := map[string]distribution.Phase{
		"configure": distribution.PhaseConfigure,
		"build":     distribution.PhaseBuild,
		"test":      distribution.PhaseTest,
		"runtime":   distribution.PhaseRuntime,
	}
	for name, phase := range phases {
		section, ok := f.Prereqs[name]
		if !ok {
			continue
		}
		deps, ok := section["requires"].(map[string]interface{})
		if !ok {
			continue
		}
		out[phase] = entriesFrom(deps)
	}

	if len(out) == 0 {
		if len(f.ConfigureRequires) > 0 {
			out[distribution.PhaseConfigure] = entriesFrom(f.ConfigureRequires)
		}
		if len(f.BuildRequires) > 0 {
			out[distribution.PhaseBuild] = entriesFrom(f.BuildRequires)
		}
		if len(f.Requires) > 0 {
			out[distribution.PhaseRuntime] = entriesFrom(f.Requires)
		}
	}
	return out
}

func entriesFrom(deps map[string]interface{}) []requirement.Entry {
	pkgs := make([]string, 0, len(deps))
	for pkg := range deps {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	entries := make([]requirement.Entry, 0, len(pkgs))
	for _, pkg := range pkgs {
		entries = append(entries, requirement.Entry{
			Package: pkg,
			Range:   version.ParseRange(versionString(deps[pkg])),
		})
	}
	return entries
}

func versionString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return "0"
	}
}
