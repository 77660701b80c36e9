// Package compat classifies version deltas between two constraints on the
// same package and produces a risk-assessed PackageAnalysis (C3). The
// algorithm and the fixed package lists are grounded on
// original_source/mcp/git_service.py's analyze_requirements_changes and
// original_source/mcp/requirements_analyzer.py's analyze_version_compatibility.
package compat

import (
	"sort"
	"strings"

	"github.com/mcplane/mcpd/internal/reqs"
)

// RiskLevel is an ordered enum: Low < Medium < High < Unknown.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskUnknown
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// PackageAnalysis is the per-package record C3 produces.
type PackageAnalysis struct {
	Name            string
	OldConstraint   *reqs.Constraint
	NewConstraint   *reqs.Constraint
	Analysis        string
	Risk            RiskLevel
	Recommendations []string
}

// devTestTools is the fixed list of dev/test dependencies treated as
// low-risk additions (original_source's hardcoded list, carried verbatim).
var devTestTools = map[string]bool{
	"pytest":   true,
	"coverage": true,
	"flake8":   true,
	"mypy":     true,
	"black":    true,
	"isort":    true,
}

// securitySensitive is the fixed list of security-related package names
// that warrant a security-review recommendation on addition.
var securitySensitive = map[string]bool{
	"cryptography": true,
	"pyjwt":        true,
	"bcrypt":       true,
	"passlib":      true,
}

// criticalDependencies affect many parts of an application when changed;
// triggers the staged-rollout-adjacent "may affect many parts" warning.
var criticalDependencies = map[string]bool{
	"django":     true,
	"flask":      true,
	"fastapi":    true,
	"tensorflow": true,
	"pytorch":    true,
	"numpy":      true,
	"pandas":     true,
}

// AnalyzeChanged classifies a package present in both manifests with a
// changed constraint.
func AnalyzeChanged(name string, oldC, newC reqs.Constraint) PackageAnalysis {
	pa := PackageAnalysis{
		Name:          name,
		OldConstraint: &oldC,
		NewConstraint: &newC,
	}

	// Both exact pins: compare version triples.
	if oldC.Op == reqs.OpExact && newC.Op == reqs.OpExact {
		oldT, oldOK := ParseTriple(oldC.Version)
		newT, newOK := ParseTriple(newC.Version)

		if !oldOK || !newOK {
			pa.Risk = RiskUnknown
			pa.Analysis = "version could not be parsed; review changelog manually"
			pa.Recommendations = []string{"review changelog manually"}
			return pa
		}

		switch {
		case newT.Major > oldT.Major:
			pa.Risk = RiskHigh
			pa.Analysis = "major version upgrade may introduce breaking changes"
			pa.Recommendations = []string{"review changelog for breaking changes", "run full test suite"}
			return pa
		case newT.Major < oldT.Major:
			pa.Risk = RiskHigh
			pa.Analysis = "downgrade may cause regressions"
			pa.Recommendations = []string{"verify rationale", "run regression tests"}
			return pa
		case newT.HasMinor && oldT.HasMinor && newT.Minor > oldT.Minor:
			pa.Risk = RiskMedium
			pa.Analysis = "minor version upgrade may add features"
			pa.Recommendations = []string{"review changelog for new features"}
			return pa
		case newT.HasMinor && oldT.HasMinor && newT.Minor < oldT.Minor:
			pa.Risk = RiskMedium
			pa.Analysis = "downgrade may cause regressions"
			pa.Recommendations = []string{"verify rationale", "run regression tests"}
			return pa
		case newT.HasPatch && oldT.HasPatch && newT.Patch > oldT.Patch:
			pa.Risk = RiskLow
			pa.Analysis = "patch upgrade; likely bug fixes only"
			return pa
		case newT.HasPatch && oldT.HasPatch && newT.Patch < oldT.Patch:
			pa.Risk = RiskMedium
			pa.Analysis = "downgrade may cause regressions"
			pa.Recommendations = []string{"verify rationale", "run regression tests"}
			return pa
		default:
			pa.Risk = RiskLow
			pa.Analysis = "version unchanged in comparable components"
			return pa
		}
	}

	// Constraint tightening: AtLeast -> Exact.
	if oldC.Op == reqs.OpAtLeast && newC.Op == reqs.OpExact {
		pa.Risk = RiskLow
		pa.Analysis = "constraint tightened; improves reproducibility"
		return pa
	}

	// Constraint relaxation: Exact -> AtLeast or Exact -> Any.
	if oldC.Op == reqs.OpExact && (newC.Op == reqs.OpAtLeast || newC.Op == reqs.OpAny) {
		pa.Risk = RiskMedium
		pa.Analysis = "constraint relaxed; future installs may pick different versions"
		pa.Recommendations = []string{"consider pinning"}
		return pa
	}

	pa.Risk = RiskUnknown
	pa.Analysis = "constraint change could not be classified; review changelog manually"
	pa.Recommendations = []string{"review changelog manually"}
	return pa
}

// AnalyzeAdded classifies a newly added dependency.
func AnalyzeAdded(name string, c reqs.Constraint) PackageAnalysis {
	pa := PackageAnalysis{
		Name:          name,
		NewConstraint: &c,
		Risk:          RiskMedium,
	}

	lower := strings.ToLower(baseName(name))

	switch {
	case devTestTools[lower]:
		pa.Risk = RiskLow
		pa.Analysis = "development/test dependency; generally safe to add"
	case strings.Contains(lower, "security") || securitySensitive[lower]:
		pa.Risk = RiskMedium
		pa.Analysis = "security-related package should be reviewed carefully"
		pa.Recommendations = append(pa.Recommendations, "review security implications of adding this dependency")
	case c.Op != reqs.OpExact:
		pa.Risk = RiskMedium
		pa.Analysis = "new dependency with a non-exact constraint may resolve to unexpected future versions"
		pa.Recommendations = append(pa.Recommendations, "pin to a specific version for reproducibility")
	default:
		pa.Analysis = "new dependency added"
	}

	return pa
}

// baseName strips an "[extras]" suffix from a requirement name so fixed
// lists can match the bare package name.
func baseName(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// AnalyzeRemoved classifies a removed dependency. addedNames is the set of
// package names added in the same delta, used to detect possible
// replacements by normalized substring match.
func AnalyzeRemoved(name string, c reqs.Constraint, addedNames []string) PackageAnalysis {
	pa := PackageAnalysis{
		Name:          name,
		OldConstraint: &c,
		Risk:          RiskMedium,
	}

	normalized := normalize(baseName(name))
	var replacements []string
	for _, added := range addedNames {
		addedNorm := normalize(baseName(added))
		if addedNorm == "" || normalized == "" {
			continue
		}
		if strings.Contains(addedNorm, normalized) || strings.Contains(normalized, addedNorm) {
			replacements = append(replacements, added)
		}
	}

	if len(replacements) > 0 {
		sort.Strings(replacements)
		pa.Analysis = "possibly replaced by " + strings.Join(replacements, ", ")
		pa.Recommendations = []string{"verify " + strings.Join(replacements, ", ") + " provides equivalent functionality"}
	} else {
		pa.Analysis = "dependency removed with no obvious replacement"
		pa.Recommendations = []string{"verify functionality has been replaced or is no longer needed"}
	}

	return pa
}

func normalize(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

// IsCriticalDependency reports whether name is in the fixed
// "core web frameworks and numerical libraries" list used to warn that a
// change may affect many parts of an application.
func IsCriticalDependency(name string) bool {
	return criticalDependencies[strings.ToLower(baseName(name))]
}
