// Package reqdiff implements the Requirements-Change Analyzer (C6): it
// locates a Python requirements manifest across two revisions of a
// gitrepo.Workspace, diffs the parsed constraint sets (C2), risk-assesses
// every change (C3), and synthesizes a human-readable recommendation set.
// Grounded on original_source/mcp/git_service.py's
// analyze_requirements_changes and mcp/requirements_analyzer.py's
// RequirementsAnalyzer.analyze_requirements_change.
package reqdiff

import (
	"context"
	"fmt"
	"sort"

	"github.com/mcplane/mcpd/internal/compat"
	"github.com/mcplane/mcpd/internal/gitrepo"
	"github.com/mcplane/mcpd/internal/reqs"
)

// manifestSearchPath is the fixed, ordered list of candidate manifest
// locations probed at each revision; the first hit wins.
var manifestSearchPath = []string{
	"requirements.txt",
	"requirements/base.txt",
	"requirements/prod.txt",
	"requirements/production.txt",
}

// Status classifies how the manifest situation compares across the two
// revisions being analyzed.
type Status string

const (
	StatusOK                 Status = "success"
	StatusNoRequirements     Status = "no_requirements"
	StatusNewRequirements    Status = "new_requirements"
	StatusDeletedRequirements Status = "deleted_requirements"
)

// Delta holds the three disjoint add/remove/change maps between two
// parsed requirement sets.
type Delta struct {
	Added   map[string]reqs.Constraint
	Removed map[string]reqs.Constraint
	Changed map[string]ChangedConstraint
}

// ChangedConstraint is a package whose constraint differs between base and
// target; Old is always different from New.
type ChangedConstraint struct {
	Old reqs.Constraint
	New reqs.Constraint
}

// IssueCounts buckets PackageAnalysis entries by risk level.
type IssueCounts struct {
	High    int
	Medium  int
	Low     int
	Unknown int
}

// Report is the full result of analyzing requirements changes between two
// revisions.
type Report struct {
	Status          Status
	ManifestPath    string
	Delta           Delta
	Analyses        []compat.PackageAnalysis
	IssueCounts     IssueCounts
	Recommendations []string
}

// Analyze runs C6 against ws between baseRev and targetRev.
func Analyze(ctx context.Context, ws *gitrepo.Workspace, baseRev, targetRev string) (*Report, error) {
	basePath, baseContent, err := findManifest(ctx, ws, baseRev)
	if err != nil {
		return nil, err
	}
	targetPath, targetContent, err := findManifest(ctx, ws, targetRev)
	if err != nil {
		return nil, err
	}

	switch {
	case baseContent == nil && targetContent == nil:
		return &Report{Status: StatusNoRequirements}, nil
	case baseContent == nil:
		parsed := reqs.Parse(string(targetContent))
		return &Report{
			Status:       StatusNewRequirements,
			ManifestPath: targetPath,
			Delta:        Delta{Added: parsed, Removed: map[string]reqs.Constraint{}, Changed: map[string]ChangedConstraint{}},
		}, nil
	case targetContent == nil:
		parsed := reqs.Parse(string(baseContent))
		return &Report{
			Status:       StatusDeletedRequirements,
			ManifestPath: basePath,
			Delta:        Delta{Added: map[string]reqs.Constraint{}, Removed: parsed, Changed: map[string]ChangedConstraint{}},
		}, nil
	}

	baseSet := reqs.Parse(string(baseContent))
	targetSet := reqs.Parse(string(targetContent))
	delta := computeDelta(baseSet, targetSet)

	report := &Report{
		Status:       StatusOK,
		ManifestPath: targetPath,
		Delta:        delta,
	}

	addedNames := namesOf(delta.Added)

	for name, c := range delta.Changed {
		pa := compat.AnalyzeChanged(name, c.Old, c.New)
		report.Analyses = append(report.Analyses, pa)
	}
	for name, c := range delta.Added {
		pa := compat.AnalyzeAdded(name, c)
		report.Analyses = append(report.Analyses, pa)
	}
	for name, c := range delta.Removed {
		pa := compat.AnalyzeRemoved(name, c, addedNames)
		report.Analyses = append(report.Analyses, pa)
	}

	sort.Slice(report.Analyses, func(i, j int) bool {
		return report.Analyses[i].Name < report.Analyses[j].Name
	})

	for _, pa := range report.Analyses {
		switch pa.Risk {
		case compat.RiskHigh:
			report.IssueCounts.High++
		case compat.RiskMedium:
			report.IssueCounts.Medium++
		case compat.RiskUnknown:
			report.IssueCounts.Unknown++
		default:
			report.IssueCounts.Low++
		}
	}

	report.Recommendations = synthesizeRecommendations(report)

	return report, nil
}

func computeDelta(base, target map[string]reqs.Constraint) Delta {
	d := Delta{
		Added:   map[string]reqs.Constraint{},
		Removed: map[string]reqs.Constraint{},
		Changed: map[string]ChangedConstraint{},
	}

	for name, newC := range target {
		oldC, existed := base[name]
		if !existed {
			d.Added[name] = newC
			continue
		}
		if !oldC.Equal(newC) {
			d.Changed[name] = ChangedConstraint{Old: oldC, New: newC}
		}
	}
	for name, oldC := range base {
		if _, stillPresent := target[name]; !stillPresent {
			d.Removed[name] = oldC
		}
	}

	return d
}

func namesOf(m map[string]reqs.Constraint) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

// synthesizeRecommendations builds the human-readable recommendation list:
// one line per non-empty risk bucket naming its members, a staged-rollout
// warning when more than three packages changed, and a critical-dependency
// warning when any changed package is on the fixed list.
func synthesizeRecommendations(report *Report) []string {
	var recs []string

	byRisk := map[compat.RiskLevel][]string{}
	for _, pa := range report.Analyses {
		byRisk[pa.Risk] = append(byRisk[pa.Risk], pa.Name)
	}

	if names, ok := byRisk[compat.RiskHigh]; ok {
		recs = append(recs, fmt.Sprintf("high risk: %s", joinSorted(names)))
	}
	if names, ok := byRisk[compat.RiskMedium]; ok {
		recs = append(recs, fmt.Sprintf("medium risk: %s", joinSorted(names)))
	}
	if names, ok := byRisk[compat.RiskLow]; ok {
		recs = append(recs, fmt.Sprintf("low risk: %s", joinSorted(names)))
	}
	if names, ok := byRisk[compat.RiskUnknown]; ok {
		recs = append(recs, fmt.Sprintf("unknown risk: %s", joinSorted(names)))
	}

	changedCount := len(report.Delta.Added) + len(report.Delta.Removed) + len(report.Delta.Changed)
	if changedCount > 3 {
		recs = append(recs, "consider staged rollout given the number of changed packages")
	}

	var critical []string
	for name := range report.Delta.Changed {
		if compat.IsCriticalDependency(name) {
			critical = append(critical, name)
		}
	}
	if len(critical) > 0 {
		sort.Strings(critical)
		recs = append(recs, fmt.Sprintf("%s affects many parts of the application; test thoroughly", joinSorted(critical)))
	}

	return recs
}

func joinSorted(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := ""
	for i, n := range sorted {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// findManifest probes manifestSearchPath at rev and returns the first hit's
// path and content, or ("", nil, nil) if no candidate exists at that
// revision.
func findManifest(ctx context.Context, ws *gitrepo.Workspace, rev string) (string, []byte, error) {
	for _, candidate := range manifestSearchPath {
		content, err := ws.FileContentAt(ctx, rev, candidate)
		if err != nil {
			return "", nil, err
		}
		if content != nil {
			return candidate, content, nil
		}
	}
	return "", nil, nil
}
