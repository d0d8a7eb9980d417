package corelist

import (
	"testing"

	"github.com/my-mail-ru/cpm/internal/version"
)

func TestFind(t *testing.T) {
	perl := version.Parse("5.38.0")

	v, ok := Default.Find(perl, "Carp")
	if !ok {
		t.Fatal("Carp must be core in 5.38.0")
	}
	if v.String() != "1.54" {
		t.Errorf("Carp version = %s, want 1.54", v)
	}

	if _, ok := Default.Find(perl, "Moose"); ok {
		t.Error("Moose must not be core")
	}
	if _, ok := Default.Find(version.Parse("5.6.0"), "Carp"); ok {
		t.Error("unknown release must report nothing")
	}
}

func TestFindNormalizesRelease(t *testing.T) {
	// dotted and decimal spellings of the same release both match
	for _, spelling := range []string{"5.36", "5.036", "5.36.0"} {
		if _, ok := Default.Find(version.Parse(spelling), "Exporter"); !ok {
			t.Errorf("Exporter must be found for release spelled %q", spelling)
		}
	}
}

func TestHas(t *testing.T) {
	if !Default.Has(version.Parse("5.40.0")) {
		t.Error("5.40.0 must be known")
	}
	if Default.Has(version.Parse("5.8.9")) {
		t.Error("5.8.9 must be unknown")
	}
}
