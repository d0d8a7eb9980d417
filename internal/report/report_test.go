package report

import (
	"strings"
	"testing"

	"github.com/my-mail-ru/cpm/internal/master"
)

func TestEmitNil(t *testing.T) {
	var sb strings.Builder
	if err := NewEmitter(&sb).Emit(nil); err != nil {
		t.Fatal(err)
	}
	if sb.Len() != 0 {
		t.Errorf("nil report must write nothing, got %q", sb.String())
	}
}

func TestEmitSections(t *testing.T) {
	var sb strings.Builder
	r := &master.FailureReport{
		Resolve: []string{"Zebra::Module", "Aardvark::Module"},
		Install: []string{"B-1.0", "A-1.0"},
		Cycles: map[string][]string{
			"a.tar.gz": {"A-1.0", "B-1.0", "A-1.0"},
			"b.tar.gz": {"A-1.0", "B-1.0", "A-1.0"},
		},
	}
	if err := NewEmitter(&sb).Emit(r); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	want := `Failed to resolve:
  Aardvark::Module
  Zebra::Module
Failed to install:
  A-1.0
  B-1.0
Circular dependencies:
  A-1.0 -> B-1.0 -> A-1.0
`
	if out != want {
		t.Errorf("Emit output:\n%s\nwant:\n%s", out, want)
	}
}
