package cycle

import (
	"reflect"
	"testing"
)

func TestNoCycle(t *testing.T) {
	d := New()
	d.Add("A.tar.gz", "A-1.0", []string{"A"}, []string{"B"})
	d.Add("B.tar.gz", "B-1.0", []string{"B"}, nil)
	d.Finalize()
	if got := d.Detect(); len(got) != 0 {
		t.Errorf("Detect() = %v, want empty", got)
	}
}

func TestSelfLoop(t *testing.T) {
	d := New()
	d.Add("A.tar.gz", "A-1.0", []string{"A", "A::Util"}, []string{"A::Util"})
	got := d.Detect()
	want := map[string][]string{"A.tar.gz": {"A-1.0", "A-1.0"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect() = %v, want %v", got, want)
	}
}

func TestTwoCycle(t *testing.T) {
	d := New()
	d.Add("B.tar.gz", "B-1.0", []string{"B"}, []string{"A"})
	d.Add("A.tar.gz", "A-1.0", []string{"A"}, []string{"B"})
	got := d.Detect()
	if len(got) != 2 {
		t.Fatalf("Detect() = %v, want both distributions reported", got)
	}
	// lexicographically smallest rotation regardless of insertion order
	want := []string{"A-1.0", "B-1.0", "A-1.0"}
	for distfile, path := range got {
		if !reflect.DeepEqual(path, want) {
			t.Errorf("path for %s = %v, want %v", distfile, path, want)
		}
	}
}

func TestThreeCycleWithTail(t *testing.T) {
	d := New()
	d.Add("C.tar.gz", "C-1.0", []string{"C"}, []string{"A"})
	d.Add("B.tar.gz", "B-1.0", []string{"B"}, []string{"C"})
	d.Add("A.tar.gz", "A-1.0", []string{"A"}, []string{"B"})
	d.Add("D.tar.gz", "D-1.0", []string{"D"}, []string{"A"}) // outside the cycle
	got := d.Detect()
	if len(got) != 3 {
		t.Fatalf("Detect() reported %d distributions, want 3: %v", len(got), got)
	}
	if _, ok := got["D.tar.gz"]; ok {
		t.Error("D is not on a cycle")
	}
	want := []string{"A-1.0", "B-1.0", "C-1.0", "A-1.0"}
	if !reflect.DeepEqual(got["A.tar.gz"], want) {
		t.Errorf("path = %v, want %v", got["A.tar.gz"], want)
	}
}

func TestDisjointCycles(t *testing.T) {
	d := New()
	d.Add("A.tar.gz", "A-1.0", []string{"A"}, []string{"B"})
	d.Add("B.tar.gz", "B-1.0", []string{"B"}, []string{"A"})
	d.Add("X.tar.gz", "X-1.0", []string{"X"}, []string{"Y"})
	d.Add("Y.tar.gz", "Y-1.0", []string{"Y"}, []string{"X"})
	got := d.Detect()
	if len(got) != 4 {
		t.Fatalf("Detect() = %v, want 4 entries", got)
	}
}
