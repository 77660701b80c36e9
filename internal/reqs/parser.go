// Package reqs parses Python-style requirements.txt manifests into
// normalized package/constraint maps (C2). The parser is total: it never
// fails, and unparseable lines simply contribute no entry.
package reqs

import (
	"regexp"
	"strings"
)

// Op names a constraint operator.
type Op int

const (
	OpAny Op = iota
	OpExact
	OpAtLeast
	OpGreaterThan
	OpAtMost
	OpLessThan
	OpCompatible
)

func (o Op) String() string {
	switch o {
	case OpExact:
		return "=="
	case OpAtLeast:
		return ">="
	case OpGreaterThan:
		return ">"
	case OpAtMost:
		return "<="
	case OpLessThan:
		return "<"
	case OpCompatible:
		return "~="
	default:
		return ""
	}
}

// Constraint is a version constraint attached to a package name.
type Constraint struct {
	Op      Op
	Version string // empty for OpAny
}

// String renders the constraint the way it would appear in a manifest,
// e.g. "==1.2.3" or "" for Any.
func (c Constraint) String() string {
	if c.Op == OpAny {
		return ""
	}
	return c.Op.String() + c.Version
}

// Equal reports whether two constraints are semantically identical.
func (c Constraint) Equal(other Constraint) bool {
	return c.Op == other.Op && c.Version == other.Version
}

var extrasRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)(\[[A-Za-z0-9._,-]+\])$`)

// matchers are tried in priority order; first match wins. Longer operators
// must precede shorter prefixes of themselves (">=" before ">").
var matchers = []struct {
	sep string
	op  Op
}{
	{"==", OpExact},
	{">=", OpAtLeast},
	{"<=", OpAtMost},
	{"~=", OpCompatible},
	{">", OpGreaterThan},
	{"<", OpLessThan},
}

// Parse parses manifest text (one requirement per non-empty, non-comment
// line) into a name -> constraint map. Duplicate names within the same
// text resolve last-wins. The parser never returns an error; lines it
// cannot interpret are silently dropped.
func Parse(text string) map[string]Constraint {
	result := make(map[string]Constraint)

	for _, rawLine := range strings.Split(text, "\n") {
		line := stripComment(rawLine)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, constraint, ok := parseLine(line)
		if !ok {
			continue
		}

		result[name] = constraint
	}

	return result
}

func stripComment(line string) string {
	if idx := strings.Index(line, "#"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func parseLine(line string) (string, Constraint, bool) {
	for _, m := range matchers {
		if idx := strings.Index(line, m.sep); idx >= 0 {
			name := strings.TrimSpace(line[:idx])
			version := strings.TrimSpace(line[idx+len(m.sep):])
			if name == "" {
				return "", Constraint{}, false
			}
			return name, Constraint{Op: m.op, Version: version}, true
		}
	}

	if m := extrasRe.FindStringSubmatch(line); m != nil {
		return m[1] + m[2], Constraint{Op: OpAny}, true
	}

	name := strings.TrimSpace(line)
	if name == "" {
		return "", Constraint{}, false
	}
	return name, Constraint{Op: OpAny}, true
}

// Render writes a manifest from a name -> constraint map. Used by tests to
// verify the parse(render(M)) == M round-trip invariant. Output order is
// the sorted name order.
func Render(m map[string]Constraint) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	// simple insertion sort keeps this package free of extra imports for
	// such a short, test-only helper
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}

	var b strings.Builder
	for _, name := range names {
		c := m[name]
		b.WriteString(name)
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}
