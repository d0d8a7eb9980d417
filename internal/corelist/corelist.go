// Package corelist carries the table of modules shipped with each perl
// release. The scheduler consults it so that requirements satisfied by
// the target runtime itself never turn into install work.
package corelist

import (
	"github.com/my-mail-ru/cpm/internal/version"
)

// Table maps a perl release (canonical dotted form) to the modules it
// ships and their versions. It is read-only once constructed and is
// injected into the scheduler rather than consulted as process state.
type Table map[string]map[string]string

// Find returns the version of pkg shipped with the given perl release.
func (t Table) Find(perl version.Version, pkg string) (version.Version, bool) {
	mods, ok := t.release(perl)
	if !ok {
		return version.Version{}, false
	}
	v, ok := mods[pkg]
	if !ok {
		return version.Version{}, false
	}
	return version.Parse(v), true
}

// Has reports whether the table knows the given perl release at all.
func (t Table) Has(perl version.Version) bool {
	_, ok := t.release(perl)
	return ok
}

// release matches a perl version against the table keys numerically, so
// "5.36" and "5.036" find the "5.36.0" entry.
func (t Table) release(perl version.Version) (map[string]string, bool) {
	if mods, ok := t[perl.Canonical()]; ok {
		return mods, true
	}
	for key, mods := range t {
		if version.Parse(key).Compare(perl) == 0 {
			return mods, true
		}
	}
	return nil, false
}

// Default is a trimmed core table for recent perl releases, covering the
// modules that show up as configure/build requirements in practice.
var Default = Table{
	"5.36.0": modules536,
	"5.38.0": modules538,
	"5.40.0": modules540,
}

var modules536 = map[string]string{
	"perl":                 "5.36.0",
	"strict":               "1.12",
	"warnings":             "1.58",
	"Carp":                 "1.52",
	"Config":               "5.036000",
	"Cwd":                  "3.84",
	"Data::Dumper":         "2.184",
	"Encode":               "3.17",
	"Exporter":             "5.77",
	"ExtUtils::CBuilder":   "0.280236",
	"ExtUtils::Install":    "2.20",
	"ExtUtils::MakeMaker":  "7.64",
	"ExtUtils::Manifest":   "1.73",
	"ExtUtils::ParseXS":    "3.45",
	"File::Basename":       "2.85",
	"File::Copy":           "2.38",
	"File::Find":           "1.40",
	"File::Path":           "2.18",
	"File::Spec":           "3.84",
	"File::Temp":           "0.2311",
	"Getopt::Long":         "2.52",
	"IO":                   "1.50",
	"IO::Socket":           "1.46",
	"IPC::Cmd":             "1.04",
	"IPC::Open3":           "1.22",
	"JSON::PP":             "4.07",
	"List::Util":           "1.62",
	"MIME::Base64":         "3.16",
	"Module::CoreList":     "5.20220520",
	"Module::Load":         "0.36",
	"Module::Metadata":     "1.000037",
	"POSIX":                "2.03",
	"Pod::Usage":           "2.01",
	"Scalar::Util":         "1.62",
	"Storable":             "3.26",
	"Test::Harness":        "3.44",
	"Test::More":           "1.302190",
	"Text::ParseWords":     "3.31",
	"Time::HiRes":          "1.9770",
	"Time::Local":          "1.30",
	"parent":               "0.238",
	"version":              "0.9929",
}

var modules538 = map[string]string{
	"perl":                 "5.38.0",
	"strict":               "1.13",
	"warnings":             "1.65",
	"Carp":                 "1.54",
	"Config":               "5.038000",
	"Cwd":                  "3.89",
	"Data::Dumper":         "2.188",
	"Encode":               "3.19",
	"Exporter":             "5.77",
	"ExtUtils::CBuilder":   "0.280238",
	"ExtUtils::Install":    "2.22",
	"ExtUtils::MakeMaker":  "7.70",
	"ExtUtils::Manifest":   "1.73",
	"ExtUtils::ParseXS":    "3.51",
	"File::Basename":       "2.86",
	"File::Copy":           "2.41",
	"File::Find":           "1.43",
	"File::Path":           "2.18",
	"File::Spec":           "3.89",
	"File::Temp":           "0.2311",
	"Getopt::Long":         "2.54",
	"IO":                   "1.52",
	"IO::Socket":           "1.53",
	"IPC::Cmd":             "1.04",
	"IPC::Open3":           "1.22",
	"JSON::PP":             "4.16",
	"List::Util":           "1.63",
	"MIME::Base64":         "3.16",
	"Module::CoreList":     "5.20230520",
	"Module::Load":         "0.36",
	"Module::Metadata":     "1.000037",
	"POSIX":                "2.13",
	"Pod::Usage":           "2.03",
	"Scalar::Util":         "1.63",
	"Storable":             "3.32",
	"Test::Harness":        "3.44",
	"Test::More":           "1.302194",
	"Text::ParseWords":     "3.31",
	"Time::HiRes":          "1.9775",
	"Time::Local":          "1.30",
	"parent":               "0.241",
	"version":              "0.9929",
}

var modules540 = map[string]string{
	"perl":                 "5.40.0",
	"strict":               "1.13",
	"warnings":             "1.69",
	"Carp":                 "1.54",
	"Config":               "5.040000",
	"Cwd":                  "3.91",
	"Data::Dumper":         "2.189",
	"Encode":               "3.21",
	"Exporter":             "5.78",
	"ExtUtils::CBuilder":   "0.280240",
	"ExtUtils::Install":    "2.22",
	"ExtUtils::MakeMaker":  "7.70",
	"ExtUtils::Manifest":   "1.75",
	"ExtUtils::ParseXS":    "3.51",
	"File::Basename":       "2.86",
	"File::Copy":           "2.41",
	"File::Find":           "1.44",
	"File::Path":           "2.18",
	"File::Spec":           "3.91",
	"File::Temp":           "0.2311",
	"Getopt::Long":         "2.57",
	"IO":                   "1.55",
	"IO::Socket":           "1.55",
	"IPC::Cmd":             "1.04",
	"IPC::Open3":           "1.22",
	"JSON::PP":             "4.16",
	"List::Util":           "1.63",
	"MIME::Base64":         "3.16",
	"Module::CoreList":     "5.20240609",
	"Module::Load":         "0.36",
	"Module::Metadata":     "1.000038",
	"POSIX":                "2.20",
	"Pod::Usage":           "2.03",
	"Scalar::Util":         "1.63",
	"Storable":             "3.32",
	"Test::Harness":        "3.48",
	"Test::More":           "1.302199",
	"Text::ParseWords":     "3.32",
	"Time::HiRes":          "1.9777",
	"Time::Local":          "1.35",
	"parent":               "0.241",
	"version":              "0.9930",
}
