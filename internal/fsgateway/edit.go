package fsgateway

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/mcplane/mcpd/internal/apperr"
)

// EditOperation is one substring replacement to apply to a file.
type EditOperation struct {
	OldText string
	NewText string
}

// AppliedEdit records a successfully applied EditOperation.
type AppliedEdit struct {
	OldText string
	NewText string
}

// FailedEdit records an EditOperation whose OldText could not be located.
type FailedEdit struct {
	OldText string
	NewText string
	Reason  string
}

// EditResult is the outcome of an Edit call.
type EditResult struct {
	Path         string
	OriginalSize int
	NewSize      int
	DryRun       bool
	Applied      []AppliedEdit
	Failed       []FailedEdit
	Diff         string
}

// Edit applies ops to the file at path in order. Each operation's OldText
// is matched as the first literal substring occurrence in the *current*
// working text, i.e. after prior successful edits have already been
// applied — not against the original file content. An operation whose
// OldText cannot be found is recorded in Failed and processing continues
// with the remaining operations. When dryRun is true the file is never
// written, regardless of outcome; otherwise it is written iff at least one
// operation applied.
func (g *Gateway) Edit(path string, ops []EditOperation, dryRun bool) (EditResult, error) {
	r, err := g.resolve(path)
	if err != nil {
		return EditResult{}, err
	}

	info, err := r.fs.Stat(r.relPath)
	if err != nil {
		return EditResult{}, apperr.NotFound(fmt.Sprintf("file '%s' does not exist", path))
	}
	if info.IsDir() {
		return EditResult{}, apperr.New(apperr.KindValidation, fmt.Sprintf("path '%s' is a directory", path))
	}

	original, err := afero.ReadFile(r.fs, r.relPath)
	if err != nil {
		return EditResult{}, apperr.Internal("reading file", err)
	}
	originalText := string(original)

	working := originalText
	result := EditResult{Path: path, OriginalSize: len(originalText), DryRun: dryRun}

	for _, op := range ops {
		idx := strings.Index(working, op.OldText)
		if idx < 0 {
			result.Failed = append(result.Failed, FailedEdit{
				OldText: op.OldText,
				NewText: op.NewText,
				Reason:  "text not found in file",
			})
			continue
		}
		working = working[:idx] + op.NewText + working[idx+len(op.OldText):]
		result.Applied = append(result.Applied, AppliedEdit{OldText: op.OldText, NewText: op.NewText})
	}

	result.NewSize = len(working)
	result.Diff = lineDiff(originalText, working)

	if !dryRun && len(result.Applied) > 0 {
		if err := afero.WriteFile(r.fs, r.relPath, []byte(working), 0o644); err != nil {
			return EditResult{}, apperr.Internal("writing file", err)
		}
	}

	return result, nil
}

// lineDiff produces a minimal line-by-line pairing of before and after,
// omitting unchanged lines, each change block prefixed by its 1-based
// line number in the original text.
func lineDiff(before, after string) string {
	beforeLines := strings.Split(before, "\n")
	afterLines := strings.Split(after, "\n")

	n := len(beforeLines)
	if len(afterLines) < n {
		n = len(afterLines)
	}

	var b strings.Builder
	wrote := false
	for i := 0; i < n; i++ {
		if beforeLines[i] == afterLines[i] {
			continue
		}
		fmt.Fprintf(&b, "Line %d:\n", i+1)
		fmt.Fprintf(&b, "- %s\n", beforeLines[i])
		fmt.Fprintf(&b, "+ %s\n", afterLines[i])
		b.WriteString("\n")
		wrote = true
	}

	if !wrote {
		return "No changes"
	}
	return strings.TrimRight(b.String(), "\n")
}
