package gitrepo

import (
	"context"
	"strings"

	gdiff "github.com/go-git/go-git/v5/plumbing/format/diff"

	"github.com/mcplane/mcpd/internal/apperr"
)

// ChangeType mirrors the SCM-reported status of a changed file.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
	ChangeCopied   ChangeType = "copied"
)

// FileChange is a single file's contribution to a DiffReport.
type FileChange struct {
	Path       string
	ChangeType ChangeType
	Additions  int
	Deletions  int
	DiffText   string
}

// DiffReport is the structured result of comparing two revisions (C5).
type DiffReport struct {
	BaseCommit     CommitRef
	TargetCommit   CommitRef
	Files          []FileChange
	TotalFiles     int
	TotalAdditions int
	TotalDeletions int
}

const diffTruncateBytes = 5000
const truncationMarker = "... [truncated]"

// Diff computes a DiffReport between baseRev and targetRev, fetching either
// revision on demand if the shallow clone does not already contain it.
func (w *Workspace) Diff(ctx context.Context, baseRev, targetRev string) (*DiffReport, error) {
	baseCommit, err := w.commitObject(ctx, baseRev)
	if err != nil {
		return nil, err
	}
	targetCommit, err := w.commitObject(ctx, targetRev)
	if err != nil {
		return nil, err
	}

	patch, err := baseCommit.Patch(targetCommit)
	if err != nil {
		return nil, apperr.Upstream("computing diff", err)
	}

	report := &DiffReport{
		BaseCommit:   commitRefFrom(baseCommit),
		TargetCommit: commitRefFrom(targetCommit),
	}

	for _, filePatch := range patch.FilePatches() {
		fc := fileChangeFromPatch(filePatch)
		report.Files = append(report.Files, fc)
		report.TotalAdditions += fc.Additions
		report.TotalDeletions += fc.Deletions
	}
	report.TotalFiles = len(report.Files)

	return report, nil
}

// fileChangeFromPatch renders a single file's patch into a FileChange. The
// unified diff text is reconstructed from the patch chunks rather than
// shelling out to `git diff`, and addition/deletion counts are derived by
// scanning that reconstructed text the same way the SCM-facing report does,
// so the counts invariant holds uniformly whether the text came from here
// or from a pre-rendered diff.
func fileChangeFromPatch(fp gdiff.FilePatch) FileChange {
	from, to := fp.Files()
	path, changeType := classifyChange(from, to)

	if fp.IsBinary() {
		return FileChange{Path: path, ChangeType: changeType, DiffText: "<binary diff>"}
	}

	var b strings.Builder
	b.WriteString("--- ")
	b.WriteString(sideName(from))
	b.WriteString("\n+++ ")
	b.WriteString(sideName(to))
	b.WriteString("\n")

	for _, chunk := range fp.Chunks() {
		content := chunk.Content()
		prefix := ""
		switch chunk.Type() {
		case gdiff.Add:
			prefix = "+"
		case gdiff.Delete:
			prefix = "-"
		default:
			prefix = " "
		}
		for _, line := range splitKeepingLast(content) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	diffText := strings.TrimSuffix(b.String(), "\n")
	additions, deletions := countChanges(diffText)

	return FileChange{
		Path:       path,
		ChangeType: changeType,
		Additions:  additions,
		Deletions:  deletions,
		DiffText:   truncate(diffText),
	}
}

func sideName(f gdiff.File) string {
	if f == nil {
		return "/dev/null"
	}
	return f.Path()
}

func classifyChange(from, to gdiff.File) (string, ChangeType) {
	switch {
	case from == nil && to != nil:
		return to.Path(), ChangeAdded
	case from != nil && to == nil:
		return from.Path(), ChangeDeleted
	case from != nil && to != nil && from.Path() != to.Path():
		return to.Path(), ChangeRenamed
	case from != nil && to != nil:
		return to.Path(), ChangeModified
	default:
		return "", ChangeModified
	}
}

// splitKeepingLast splits chunk content into lines. A single trailing
// newline is dropped first, so content ending in '\n' does not yield an
// extra empty line (go-git chunk content does not reliably end with one);
// empty content yields no lines.
func splitKeepingLast(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func truncate(s string) string {
	b := []byte(s)
	if len(b) <= diffTruncateBytes {
		return s
	}
	return string(b[:diffTruncateBytes]) + truncationMarker
}

// countChanges scans a unified diff's text and counts addition/deletion
// lines, excluding the "---"/"+++" header lines from the count (C5 step 2).
func countChanges(diffText string) (additions, deletions int) {
	lines := strings.Split(diffText, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") {
			additions++
		} else if strings.HasPrefix(line, "-") {
			deletions++
		}
	}
	return additions, deletions
}
