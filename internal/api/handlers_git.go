package api

import (
	"fmt"
	"net/http"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/comprehensive"
	"github.com/mcplane/mcpd/internal/gitrepo"
	"github.com/mcplane/mcpd/internal/reqdiff"
)

func toCommitRefView(c gitrepo.CommitRef) commitRefView {
	return commitRefView{
		ID:      c.SHA,
		Message: c.Message,
		Author:  c.Author,
		Date:    c.Date,
	}
}

// diffReportView is the JSON shape shared by both diff routes.
type diffReportView struct {
	BaseCommit      commitRefView      `json:"base_commit"`
	TargetCommit    commitRefView      `json:"target_commit"`
	Files           []fileChangeView   `json:"files"`
	TotalFiles      int                `json:"total_files"`
	TotalAdditions  int                `json:"total_additions"`
	TotalDeletions  int                `json:"total_deletions"`
	Summary         string             `json:"summary"`
	Recommendations []string           `json:"recommendations"`
}

type commitRefView struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

type fileChangeView struct {
	Path       string `json:"path"`
	ChangeType string `json:"change_type"`
	Additions  int    `json:"additions"`
	Deletions  int    `json:"deletions"`
	DiffText   string `json:"diff_text"`
}

func toDiffReportView(report *gitrepo.DiffReport, summary string, recommendations []string) diffReportView {
	files := make([]fileChangeView, 0, len(report.Files))
	for _, fc := range report.Files {
		files = append(files, fileChangeView{
			Path:       fc.Path,
			ChangeType: string(fc.ChangeType),
			Additions:  fc.Additions,
			Deletions:  fc.Deletions,
			DiffText:   fc.DiffText,
		})
	}
	return diffReportView{
		BaseCommit:      toCommitRefView(report.BaseCommit),
		TargetCommit:    toCommitRefView(report.TargetCommit),
		Files:           files,
		TotalFiles:      report.TotalFiles,
		TotalAdditions:  report.TotalAdditions,
		TotalDeletions:  report.TotalDeletions,
		Summary:         summary,
		Recommendations: recommendations,
	}
}

// handleGitLastCommitDiff serves /v1/models/git-analyzer/diff: C4 + C5 on
// the last commit vs. its parent.
func (s *Server) handleGitLastCommitDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepoURL == "" {
		writeError(w, apperr.Validation("repo_url", "repo_url is required"))
		return
	}

	ws, err := gitrepo.Open(r.Context(), req.RepoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	defer ws.Release()

	report, err := ws.Diff(r.Context(), "HEAD~1", "HEAD")
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDiffReportView(report, summarizeDiff(report), diffRecommendations(report)))
}

// handleGitDiffAnalyze serves /v1/models/git-diff-analyzer/analyze: C4 + C5
// between two explicit revisions.
func (s *Server) handleGitDiffAnalyze(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepoURL == "" || req.CommitSHA == "" {
		writeError(w, apperr.Validation("repo_url", "repo_url and commit_sha are required"))
		return
	}

	target := req.TargetCommit
	if target == "" {
		target = "HEAD"
	}

	ws, err := gitrepo.Open(r.Context(), req.RepoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	defer ws.Release()

	report, err := ws.Diff(r.Context(), req.CommitSHA, target)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDiffReportView(report, summarizeDiff(report), diffRecommendations(report)))
}

func summarizeDiff(report *gitrepo.DiffReport) string {
	return formatSummary(report.TotalFiles, report.TotalAdditions, report.TotalDeletions)
}

func diffRecommendations(report *gitrepo.DiffReport) []string {
	var recs []string
	if report.TotalAdditions+report.TotalDeletions > 20 {
		recs = append(recs, "run the full test suite given the size of this change")
	}
	recs = append(recs, "review the file-level diff for unintended changes")
	return recs
}

// analyzeRequirementsView is the JSON shape for /analyze-requirements.
type analyzeRequirementsView struct {
	Status          string                      `json:"status"`
	Added           map[string]string           `json:"added"`
	Removed         map[string]string           `json:"removed"`
	Changed         map[string][2]string         `json:"changed"`
	PotentialIssues []string                    `json:"potential_issues"`
	Recommendations []string                    `json:"recommendations"`
	IssueCounts     issueCountsView             `json:"issue_counts"`
	AIAnalysis      []packageAnalysisView       `json:"ai_analysis"`
}

type issueCountsView struct {
	High    int `json:"high"`
	Medium  int `json:"medium"`
	Low     int `json:"low"`
	Unknown int `json:"unknown"`
}

type packageAnalysisView struct {
	Name            string   `json:"name"`
	OldConstraint   string   `json:"old_constraint,omitempty"`
	NewConstraint   string   `json:"new_constraint,omitempty"`
	Analysis        string   `json:"analysis"`
	Risk            string   `json:"risk"`
	Recommendations []string `json:"recommendations,omitempty"`
}

func (s *Server) handleAnalyzeRequirements(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepoURL == "" || req.CommitSHA == "" {
		writeError(w, apperr.Validation("repo_url", "repo_url and commit_sha are required"))
		return
	}
	target := req.TargetCommit
	if target == "" {
		target = "HEAD"
	}

	ws, err := gitrepo.Open(r.Context(), req.RepoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	defer ws.Release()

	report, err := reqdiff.Analyze(r.Context(), ws, req.CommitSHA, target)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAnalyzeRequirementsView(report))
}

func toAnalyzeRequirementsView(report *reqdiff.Report) analyzeRequirementsView {
	added := map[string]string{}
	for name, c := range report.Delta.Added {
		added[name] = c.String()
	}
	removed := map[string]string{}
	for name, c := range report.Delta.Removed {
		removed[name] = c.String()
	}
	changed := map[string][2]string{}
	for name, cc := range report.Delta.Changed {
		changed[name] = [2]string{cc.Old.String(), cc.New.String()}
	}

	issues := make([]string, 0, len(report.Analyses))
	analyses := make([]packageAnalysisView, 0, len(report.Analyses))
	for _, pa := range report.Analyses {
		issues = append(issues, pa.Analysis)
		view := packageAnalysisView{
			Name:            pa.Name,
			Analysis:        pa.Analysis,
			Risk:            pa.Risk.String(),
			Recommendations: pa.Recommendations,
		}
		if pa.OldConstraint != nil {
			view.OldConstraint = pa.OldConstraint.String()
		}
		if pa.NewConstraint != nil {
			view.NewConstraint = pa.NewConstraint.String()
		}
		analyses = append(analyses, view)
	}

	return analyzeRequirementsView{
		Status:          string(report.Status),
		Added:           added,
		Removed:         removed,
		Changed:         changed,
		PotentialIssues: issues,
		Recommendations: report.Recommendations,
		IssueCounts: issueCountsView{
			High:    report.IssueCounts.High,
			Medium:  report.IssueCounts.Medium,
			Low:     report.IssueCounts.Low,
			Unknown: report.IssueCounts.Unknown,
		},
		AIAnalysis: analyses,
	}
}

// handleGitSearch serves the supplemented /v1/models/git-diff-analyzer/search.
func (s *Server) handleGitSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepoURL == "" {
		writeError(w, apperr.Validation("repo_url", "repo_url is required"))
		return
	}

	ws, err := gitrepo.Open(r.Context(), req.RepoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	defer ws.Release()

	matches, err := ws.Search(r.Context(), req.Pattern)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matching_files": matches,
		"match_count":    len(matches),
	})
}

// handleGitStructure serves the supplemented /v1/models/git-diff-analyzer/structure.
func (s *Server) handleGitStructure(w http.ResponseWriter, r *http.Request) {
	var req StructureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepoURL == "" {
		writeError(w, apperr.Validation("repo_url", "repo_url is required"))
		return
	}

	ws, err := gitrepo.Open(r.Context(), req.RepoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	defer ws.Release()

	structure, err := ws.Structure(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_count":              structure.FileCount,
		"file_stats_by_extension": structure.FileStatsByExtension,
		"last_commit":             toCommitRefView(structure.LastCommit),
	})
}

// handleComprehensive serves /v1/git/analyze_comprehensive (C10).
func (s *Server) handleComprehensive(w http.ResponseWriter, r *http.Request) {
	var req ComprehensiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepoURL == "" || req.Base == "" || req.Target == "" {
		writeError(w, apperr.Validation("repo_url", "repo_url, base, and target are required"))
		return
	}

	report, err := comprehensive.Analyze(r.Context(), req.RepoURL, req.Base, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toComprehensiveView(report))
}

type comprehensiveView struct {
	Repository      string                   `json:"repository"`
	BaseCommit      commitRefView            `json:"base_commit"`
	TargetCommit    commitRefView            `json:"target_commit"`
	Diff            *diffReportView          `json:"diff,omitempty"`
	DiffError       string                   `json:"diff_error,omitempty"`
	Requirements    *analyzeRequirementsView `json:"requirements,omitempty"`
	RequirementsErr string                   `json:"requirements_error,omitempty"`
	Summary         string                   `json:"summary"`
	Recommendations []string                 `json:"recommendations"`
	NextSteps       []string                 `json:"next_steps"`
}

func toComprehensiveView(report *comprehensive.Report) comprehensiveView {
	view := comprehensiveView{
		Repository:      report.Repository,
		BaseCommit:      toCommitRefView(report.BaseCommit),
		TargetCommit:    toCommitRefView(report.TargetCommit),
		DiffError:       report.DiffError,
		RequirementsErr: report.RequirementsErr,
		Summary:         report.Summary,
		Recommendations: report.Recommendations,
		NextSteps:       report.NextSteps,
	}
	if report.Diff != nil {
		v := toDiffReportView(report.Diff, "", nil)
		view.Diff = &v
	}
	if report.Requirements != nil {
		v := toAnalyzeRequirementsView(report.Requirements)
		view.Requirements = &v
	}
	return view
}

func formatSummary(totalFiles, additions, deletions int) string {
	if totalFiles == 0 {
		return "no files changed"
	}
	return fmt.Sprintf("%d file(s) changed, +%d/-%d lines", totalFiles, additions, deletions)
}
