package distribution

import (
	"testing"

	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

func TestStageFlagsMonotonic(t *testing.T) {
	d := New("A/AU/AUTHOR/Foo-1.0.tar.gz", SourceCPAN, "")
	if d.Resolved() || d.Fetched() || d.Configured() || d.Installed() {
		t.Fatal("new distribution must have no stage flags set")
	}
	d.SetConfigured()
	if !d.Resolved() || !d.Fetched() || !d.Configured() {
		t.Error("SetConfigured must imply resolved and fetched")
	}
	if d.Installed() {
		t.Error("SetConfigured must not imply installed")
	}
	d.SetResolved() // no-op on an already-advanced record
	if !d.Configured() {
		t.Error("stage flags must never regress")
	}
	d.SetInstalled()
	if !d.Installed() {
		t.Error("SetInstalled")
	}
}

func TestDistvname(t *testing.T) {
	tests := []struct {
		distfile string
		want     string
	}{
		{"M/MA/MAKAMAKA/JSON-2.0.tar.gz", "JSON-2.0"},
		{"H/HA/HAARG/Moo-2.005005.tar.gz", "Moo-2.005005"},
		{"S/SH/SHAY/Perl-Dist-1.23.tgz", "Perl-Dist-1.23"},
		{"https://example.com/repo/App-Foo.git", "App-Foo"},
	}
	for _, tt := range tests {
		d := New(tt.distfile, SourceCPAN, "")
		if got := d.Distvname(); got != tt.want {
			t.Errorf("Distvname(%q) = %q, want %q", tt.distfile, got, tt.want)
		}
	}

	d := New("X/XX/X/Foo-1.0.tar.gz", SourceCPAN, "")
	d.SetDistvname("Foo-1.0")
	d.SetDistvname("")
	if d.Distvname() != "Foo-1.0" {
		t.Error("empty SetDistvname must not clear the name")
	}
}

func TestProviding(t *testing.T) {
	d := New("A/AU/AUTHOR/Foo-1.2.tar.gz", SourceCPAN, "")
	d.Provides = []Provide{
		{Package: "Foo", Version: version.Parse("1.2")},
		{Package: "Foo::Bar", Version: version.Parse("0.5"), Ref: "main"},
	}

	if !d.Providing("Foo", version.ParseRange(">= 1.0"), "") {
		t.Error("Foo 1.2 should satisfy >= 1.0")
	}
	if d.Providing("Foo", version.ParseRange(">= 2.0"), "") {
		t.Error("Foo 1.2 should not satisfy >= 2.0")
	}
	if d.Providing("Foo::Bar", version.AnyRange(), "dev") {
		t.Error("ref mismatch should not match")
	}
	if !d.Providing("Foo::Bar", version.AnyRange(), "main") {
		t.Error("matching ref should match")
	}
	if d.Providing("Baz", version.AnyRange(), "") {
		t.Error("unknown package should not match")
	}
}

func TestRequirementsAcrossPhases(t *testing.T) {
	d := New("A/AU/AUTHOR/Foo-1.0.tar.gz", SourceCPAN, "")
	if err := d.SetRequirements(PhaseBuild, []requirement.Entry{
		{Package: "ExtUtils::MakeMaker", Range: version.ParseRange(">= 6.58")},
	}); err != nil {
		t.Fatal(err)
	}
	if err := d.SetRequirements(PhaseRuntime, []requirement.Entry{
		{Package: "JSON", Range: version.ParseRange(">= 2.0")},
		{Package: "ExtUtils::MakeMaker", Range: version.ParseRange(">= 7.0")},
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := d.Requirements(PhaseBuild, PhaseTest, PhaseRuntime)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (merged)", len(entries))
	}
	for _, e := range entries {
		if e.Package == "ExtUtils::MakeMaker" {
			if version.Parse("6.60").Satisfies(e.Range) {
				t.Errorf("ranges should have intersected, got %s", e.Range)
			}
			if !version.Parse("7.1").Satisfies(e.Range) {
				t.Errorf("7.1 should satisfy %s", e.Range)
			}
		}
	}

	if got := d.RequirementsFor(PhaseConfigure); !got.Empty() {
		t.Error("missing phase must yield an empty collection")
	}
}

func TestMergeProvides(t *testing.T) {
	d := New("A/AU/AUTHOR/Foo-1.0.tar.gz", SourceCPAN, "")
	d.Provides = []Provide{{Package: "Foo", Version: version.Parse("1.0")}}
	d.MergeProvides([]Provide{
		{Package: "Foo", Version: version.Parse("9.9")},
		{Package: "Foo::Extra", Version: version.Parse("0.1")},
	})
	if len(d.Provides) != 2 {
		t.Fatalf("got %d provides, want 2", len(d.Provides))
	}
	if d.Provides[0].Version.String() != "1.0" {
		t.Error("existing provide must win on merge")
	}
}
