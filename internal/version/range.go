package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalRange is returned by Merge when the intersection of two ranges
// accepts no version.
var ErrIllegalRange = errors.New("illegal version range")

type clause struct {
	op  string
	ver Version
}

func (c clause) String() string {
	return c.op + " " + c.ver.String()
}

// Range is a version predicate: comma-separated clauses with operators
// ==, !=, >=, >, <=, < that must all hold. A bare version means ">=",
// and an empty range (or "0") accepts everything.
type Range struct {
	clauses []clause
	raw     string
}

// ParseRange parses a range literal such as ">= 1.2, < 2.0". Parsing is
// tolerant: an unrecognized clause is read as a bare minimum version.
func ParseRange(s string) Range {
	s = strings.TrimSpace(s)
	r := Range{raw: s}
	if s == "" || s == "0" {
		return r
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		op := ">="
		for _, candidate := range []string{">=", "<=", "==", "!=", ">", "<"} {
			if strings.HasPrefix(part, candidate) {
				op = candidate
				part = strings.TrimSpace(part[len(candidate):])
				break
			}
		}
		r.clauses = append(r.clauses, clause{op: op, ver: Parse(part)})
	}
	return r
}

// AnyRange returns the range that accepts every version.
func AnyRange() Range {
	return Range{}
}

// Exact returns the range accepting exactly v.
func Exact(v Version) Range {
	return Range{clauses: []clause{{op: "==", ver: v}}, raw: "== " + v.String()}
}

// AtLeast returns the range accepting v and everything above it.
func AtLeast(v Version) Range {
	return Range{clauses: []clause{{op: ">=", ver: v}}, raw: ">= " + v.String()}
}

// IsAny reports whether r accepts every version.
func (r Range) IsAny() bool {
	return len(r.clauses) == 0
}

func (r Range) String() string {
	if r.raw != "" {
		return r.raw
	}
	if len(r.clauses) == 0 {
		return "0"
	}
	ss := make([]string, len(r.clauses))
	for i, c := range r.clauses {
		ss[i] = c.String()
	}
	return strings.Join(ss, ", ")
}

// Satisfies reports whether v satisfies every clause of r. An undef
// version satisfies any range.
func (v Version) Satisfies(r Range) bool {
	if v.undef {
		return true
	}
	for _, c := range r.clauses {
		if !satisfiesClause(v, c) {
			return false
		}
	}
	return true
}

func satisfiesClause(v Version, c clause) bool {
	cmp := v.Compare(c.ver)
	switch c.op {
	case ">=":
		return cmp >= 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case "<":
		return cmp < 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return true
}

// Merge intersects two ranges. The result is equivalent to "a and b";
// merging is commutative and idempotent up to range equivalence. When the
// intersection accepts no version, Merge fails with ErrIllegalRange.
func Merge(a, b Range) (Range, error) {
	merged := a.clauses
	for _, c := range b.clauses {
		if !containsClause(merged, c) {
			// copy-on-extend so a's backing array is never shared
			merged = append(append([]clause(nil), merged...), c)
		}
	}
	if err := checkSatisfiable(merged); err != nil {
		return Range{}, err
	}
	if len(merged) == len(a.clauses) {
		return a, nil
	}
	ss := make([]string, len(merged))
	for i, c := range merged {
		ss[i] = c.String()
	}
	return Range{clauses: merged, raw: strings.Join(ss, ", ")}, nil
}

func containsClause(cs []clause, c clause) bool {
	for _, have := range cs {
		if have.op == c.op && have.ver.Compare(c.ver) == 0 {
			return true
		}
	}
	return false
}

// checkSatisfiable decides whether some version can satisfy every clause.
// The version domain is dense enough that only bound crossings, pinned
// versions and point exclusions can empty a range.
func checkSatisfiable(cs []clause) error {
	var pinned *Version
	for _, c := range cs {
		if c.op != "==" {
			continue
		}
		v := c.ver
		if pinned != nil && pinned.Compare(v) != 0 {
			return fmt.Errorf("%w: == %s conflicts with == %s", ErrIllegalRange, pinned, v)
		}
		pinned = &v
	}
	if pinned != nil {
		for _, c := range cs {
			if !satisfiesClause(*pinned, c) {
				return fmt.Errorf("%w: %s rejects pinned version %s", ErrIllegalRange, c, pinned)
			}
		}
		return nil
	}

	var lower, upper *clause
	for i := range cs {
		c := cs[i]
		switch c.op {
		case ">=", ">":
			if lower == nil || tighterLower(c, *lower) {
				lower = &cs[i]
			}
		case "<=", "<":
			if upper == nil || tighterUpper(c, *upper) {
				upper = &cs[i]
			}
		}
	}
	if lower != nil && upper != nil {
		cmp := lower.ver.Compare(upper.ver)
		if cmp > 0 {
			return fmt.Errorf("%w: %s conflicts with %s", ErrIllegalRange, lower, upper)
		}
		if cmp == 0 {
			if lower.op == ">" || upper.op == "<" {
				return fmt.Errorf("%w: %s conflicts with %s", ErrIllegalRange, lower, upper)
			}
			// single admissible point; a != on it empties the range
			for _, c := range cs {
				if c.op == "!=" && c.ver.Compare(lower.ver) == 0 {
					return fmt.Errorf("%w: %s excludes the only admissible version %s", ErrIllegalRange, c, lower.ver)
				}
			}
		}
	}
	return nil
}

func tighterLower(a, b clause) bool {
	cmp := a.ver.Compare(b.ver)
	if cmp != 0 {
		return cmp > 0
	}
	return a.op == ">" && b.op == ">="
}

func tighterUpper(a, b clause) bool {
	cmp := a.ver.Compare(b.ver)
	if cmp != 0 {
		return cmp < 0
	}
	return a.op == "<" && b.op == "<="
}

// Equivalent reports whether two ranges carry the same clause set,
// irrespective of clause order. Merge results compare equal under this
// regardless of argument order.
func Equivalent(a, b Range) bool {
	if len(a.clauses) != len(b.clauses) {
		return false
	}
	for _, c := range a.clauses {
		if !containsClause(b.clauses, c) {
			return false
		}
	}
	return true
}
