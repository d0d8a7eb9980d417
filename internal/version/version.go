package version

import (
	"strconv"
	"strings"
)

// Version is a parsed CPAN-style version literal. Both dotted (3.18.0,
// v1.2.3) and decimal (3.007004) forms are supported; decimal fractional
// parts split into groups of three digits, so 3.007004 compares equal to
// 3.7.4. The literal "undef" satisfies every range.
type Version struct {
	parts []int
	undef bool
	raw   string
}

// Parse parses a version literal. Unparseable input degrades to 0 rather
// than failing, matching how CPAN metadata is consumed in practice.
func Parse(s string) Version {
	s = strings.TrimSpace(s)
	if s == "undef" {
		return Version{undef: true, raw: s}
	}
	return Version{parts: normalize(s), raw: s}
}

// normalize converts a version string to a slice of integers.
// Decimal format: 3.007004 -> [3, 7, 4] (groups of 3 digits in the
// fractional part). Dotted format: 3.18.0 -> [3, 18, 0].
func normalize(v string) []int {
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return []int{0}
	}

	parts := strings.Split(v, ".")
	if len(parts) == 1 {
		n, _ := strconv.Atoi(parts[0])
		return []int{n}
	}

	if len(parts) == 2 && len(parts[1]) > 3 {
		major, _ := strconv.Atoi(parts[0])
		result := []int{major}

		frac := parts[1]
		for len(frac) > 0 {
			chunk := frac
			if len(chunk) > 3 {
				chunk = frac[:3]
				frac = frac[3:]
			} else {
				frac = ""
			}
			n, _ := strconv.Atoi(chunk)
			result = append(result, n)
		}
		return result
	}

	result := make([]int, len(parts))
	for i, p := range parts {
		result[i], _ = strconv.Atoi(p)
	}
	return result
}

// IsZero reports whether v is the zero Version (never parsed).
func (v Version) IsZero() bool {
	return v.parts == nil && !v.undef && v.raw == ""
}

// Undef reports whether v was parsed from the literal "undef".
func (v Version) Undef() bool {
	return v.undef
}

func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	if v.undef {
		return "undef"
	}
	if len(v.parts) == 0 {
		return "0"
	}
	ss := make([]string, len(v.parts))
	for i, p := range v.parts {
		ss[i] = strconv.Itoa(p)
	}
	return strings.Join(ss, ".")
}

// Canonical returns the normalized dotted form, e.g. 5.036 -> "5.36".
func (v Version) Canonical() string {
	if v.undef {
		return "undef"
	}
	if len(v.parts) == 0 {
		return "0"
	}
	ss := make([]string, len(v.parts))
	for i, p := range v.parts {
		ss[i] = strconv.Itoa(p)
	}
	return strings.Join(ss, ".")
}

// Compare returns -1, 0 or 1 as v is less than, equal to or greater than o.
// An undef version compares equal to everything.
func (v Version) Compare(o Version) int {
	if v.undef || o.undef {
		return 0
	}
	maxLen := len(v.parts)
	if len(o.parts) > maxLen {
		maxLen = len(o.parts)
	}
	for i := 0; i < maxLen; i++ {
		a, b := 0, 0
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(o.parts) {
			b = o.parts[i]
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
	}
	return 0
}
