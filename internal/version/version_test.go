package version

import (
	"errors"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.10", "1.9", 1},
		{"1.2.3", "1.2.4", -1},
		{"v1.0", "1.0", 0},
		{"1", "1.0", 0},
		{"1.001", "1.1", 0},
		// CPAN decimal format
		{"3.18.0", "3.007004", 1},
		{"3.007004", "3.18.0", -1},
		{"0.080001", "0.08", 1},
		{"2.005005", "2.005", 1},
		{"undef", "9.9", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := Parse(tt.a).Compare(Parse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		have string
		want string
		ok   bool
	}{
		{"1.0", "", true},
		{"1.0", "0", true},
		{"2.0", "1.0", true},
		{"0.5", "1.0", false},
		{"2.0", ">= 1.0", true},
		{"0.9", ">= 1.0", false},
		{"0.9", "< 1.0", true},
		{"1.0", "< 1.0", false},
		{"1.5", "> 1.0", true},
		{"1.0", "> 1.0", false},
		{"1.1", "<= 1.0", false},
		{"1.0", "== 1.0", true},
		{"1.1", "== 1.0", false},
		{"1.1", "!= 1.0", true},
		{"1.0", "!= 1.0", false},
		{"1.5", ">= 1.0, < 2.0", true},
		{"0.9", ">= 1.0, < 2.0", false},
		{"2.0", ">= 1.0, < 2.0", false},
		{"undef", ">= 2.0", true},
		{"undef", "!= 0", true},
	}

	for _, tt := range tests {
		t.Run(tt.have+"_"+tt.want, func(t *testing.T) {
			got := Parse(tt.have).Satisfies(ParseRange(tt.want))
			if got != tt.ok {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.have, tt.want, got, tt.ok)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		a       string
		b       string
		sat     []string // versions that must satisfy the merged range
		unsat   []string
		illegal bool
	}{
		{a: ">= 1.0", b: "< 2.0", sat: []string{"1.0", "1.5"}, unsat: []string{"0.9", "2.0"}},
		{a: "1.0", b: "1.5", sat: []string{"1.5", "2.0"}, unsat: []string{"1.2"}},
		{a: "== 1.0", b: ">= 0.5", sat: []string{"1.0"}, unsat: []string{"1.1"}},
		{a: "", b: ">= 1.0", sat: []string{"1.0"}, unsat: []string{"0.9"}},
		{a: ">= 2.0", b: "< 1.0", illegal: true},
		{a: "> 1.0", b: "< 1.0", illegal: true},
		{a: "> 1.0", b: "<= 1.0", illegal: true},
		{a: "== 1.0", b: "== 2.0", illegal: true},
		{a: "== 1.0", b: ">= 2.0", illegal: true},
		{a: ">= 1.0, <= 1.0", b: "!= 1.0", illegal: true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got, err := Merge(ParseRange(tt.a), ParseRange(tt.b))
			if tt.illegal {
				if !errors.Is(err, ErrIllegalRange) {
					t.Fatalf("Merge(%q, %q) error = %v, want ErrIllegalRange", tt.a, tt.b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Merge(%q, %q) error = %v", tt.a, tt.b, err)
			}
			for _, v := range tt.sat {
				if !Parse(v).Satisfies(got) {
					t.Errorf("version %s should satisfy merged %q", v, got)
				}
			}
			for _, v := range tt.unsat {
				if Parse(v).Satisfies(got) {
					t.Errorf("version %s should not satisfy merged %q", v, got)
				}
			}
		})
	}
}

func TestMergeCommutative(t *testing.T) {
	pairs := [][2]string{
		{">= 1.0", "< 2.0"},
		{"1.0", ">= 1.5, < 3.0"},
		{"!= 1.1", ">= 1.0"},
	}
	for _, p := range pairs {
		a, b := ParseRange(p[0]), ParseRange(p[1])
		ab, err1 := Merge(a, b)
		ba, err2 := Merge(b, a)
		if err1 != nil || err2 != nil {
			t.Fatalf("Merge(%q, %q) errors: %v, %v", p[0], p[1], err1, err2)
		}
		if !Equivalent(ab, ba) {
			t.Errorf("Merge(%q, %q) = %q not equivalent to reversed %q", p[0], p[1], ab, ba)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	for _, s := range []string{">= 1.0", ">= 1.0, < 2.0", "== 1.5", ""} {
		a := ParseRange(s)
		got, err := Merge(a, a)
		if err != nil {
			t.Fatalf("Merge(%q, %q) error = %v", s, s, err)
		}
		if got.String() != a.String() {
			t.Errorf("Merge(%q, %q) = %q, want unchanged", s, s, got)
		}
	}
}
