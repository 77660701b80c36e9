// Package comprehensive implements the Comprehensive Analyzer (C10): it
// opens a single Workspace, runs the diff extractor (C5) and the
// requirements-change analyzer (C6) independently against it, and
// composes both into one report with a unified summary, recommendations,
// and next steps. Grounded on
// original_source/mcp/git_service.py's GitService.analyze_repository,
// which composes the same repository-wide operations into one response.
package comprehensive

import (
	"context"
	"fmt"
	"sort"

	"github.com/mcplane/mcpd/internal/gitrepo"
	"github.com/mcplane/mcpd/internal/reqdiff"
)

// Report is the C10 ComprehensiveReport.
type Report struct {
	Repository      string
	BaseCommit      gitrepo.CommitRef
	TargetCommit    gitrepo.CommitRef
	Diff            *gitrepo.DiffReport
	DiffError       string
	Requirements    *reqdiff.Report
	RequirementsErr string
	Summary         string
	Recommendations []string
	NextSteps       []string
}

// Analyze opens a Workspace for repoURL and runs C5 and C6 between base
// and target independently: a failure in either produces its own error
// field rather than aborting the whole call.
func Analyze(ctx context.Context, repoURL, base, target string) (*Report, error) {
	ws, err := gitrepo.Open(ctx, repoURL)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	report := &Report{Repository: repoURL}

	diff, diffErr := ws.Diff(ctx, base, target)
	if diffErr != nil {
		report.DiffError = diffErr.Error()
	} else {
		report.Diff = diff
		report.BaseCommit = diff.BaseCommit
		report.TargetCommit = diff.TargetCommit
	}

	reqReport, reqErr := reqdiff.Analyze(ctx, ws, base, target)
	if reqErr != nil {
		report.RequirementsErr = reqErr.Error()
	} else {
		report.Requirements = reqReport
	}

	report.Summary = summarize(report)
	report.Recommendations = recommendations(report)
	report.NextSteps = nextSteps(report)

	return report, nil
}

func summarize(r *Report) string {
	fileCount := 0
	totalDelta := 0
	if r.Diff != nil {
		fileCount = r.Diff.TotalFiles
		totalDelta = r.Diff.TotalAdditions + r.Diff.TotalDeletions
	}

	changedPackages := 0
	if r.Requirements != nil {
		changedPackages = len(r.Requirements.Delta.Added) + len(r.Requirements.Delta.Removed) + len(r.Requirements.Delta.Changed)
	}

	return fmt.Sprintf(
		"%d file(s) changed (%d line delta), %d requirement(s) changed",
		fileCount, totalDelta, changedPackages,
	)
}

func recommendations(r *Report) []string {
	var recs []string
	seen := map[string]bool{}
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		recs = append(recs, s)
	}

	if r.Diff != nil {
		add("review the file-level diff for unintended changes")
	}
	if r.Requirements != nil {
		for _, rec := range r.Requirements.Recommendations {
			add(rec)
		}
	}

	add("request a peer review before merging")

	return recs
}

func nextSteps(r *Report) []string {
	var steps []string

	if r.Diff != nil && (r.Diff.TotalAdditions+r.Diff.TotalDeletions) > 20 {
		steps = append(steps, "run the full test suite given the size of this change")
	}

	if r.Requirements != nil {
		var highRisk []string
		for _, pa := range r.Requirements.Analyses {
			if pa.Risk.String() == "high" {
				highRisk = append(highRisk, pa.Name)
			}
		}
		if len(highRisk) > 0 {
			sort.Strings(highRisk)
			steps = append(steps, fmt.Sprintf("review high-risk dependency changes: %v", highRisk))
		}
	}

	return steps
}
