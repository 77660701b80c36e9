package compat

import (
	"regexp"
	"strconv"
	"strings"
)

// Triple is a lenient-best-effort parse of a version string into
// major/minor/patch components plus an optional pre-release tag. Missing
// minor and patch components are flagged by HasMinor/HasPatch=false, not
// by a zero value, so comparisons can distinguish "absent" from "0".
type Triple struct {
	Major, Minor, Patch       int
	HasMinor, HasPatch        bool
	PreRelease                string
}

var leadingDigits = regexp.MustCompile(`^\d+`)

// ParseTriple extracts up to three numeric components from the start of
// version, splitting on '.'. A trailing non-numeric suffix on the last
// parsed component (e.g. "0rc1") is captured as PreRelease. Returns
// ok=false if even the major component cannot be parsed.
func ParseTriple(version string) (Triple, bool) {
	version = strings.TrimSpace(version)
	if version == "" {
		return Triple{}, false
	}

	parts := strings.SplitN(version, ".", 3)
	var t Triple

	major, pre, ok := splitNumericPrefix(parts[0])
	if !ok {
		return Triple{}, false
	}
	t.Major = major
	if len(parts) == 1 {
		t.PreRelease = pre
	}

	if len(parts) > 1 {
		minor, pre2, ok := splitNumericPrefix(parts[1])
		if ok {
			t.Minor = minor
			t.HasMinor = true
			if len(parts) == 2 {
				t.PreRelease = pre2
			}
		}
	}

	if len(parts) > 2 {
		patch, pre3, ok := splitNumericPrefix(parts[2])
		if ok {
			t.Patch = patch
			t.HasPatch = true
			t.PreRelease = pre3
		}
	}

	return t, true
}

// splitNumericPrefix returns the leading integer of s and whatever
// trailing text follows it (e.g. "0rc1" -> 0, "rc1").
func splitNumericPrefix(s string) (int, string, bool) {
	m := leadingDigits.FindString(s)
	if m == "" {
		return 0, "", false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, "", false
	}
	return n, s[len(m):], true
}
