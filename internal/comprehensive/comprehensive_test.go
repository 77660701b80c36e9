package comprehensive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/comprehensive"
)

func newLocalRepo(t *testing.T) (path string, first, second string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("django==3.2.0\n"), 0o644))
	_, err = wt.Add("requirements.txt")
	require.NoError(t, err)
	firstCommit, err := wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("django==4.0.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print(1)\n"), 0o644))
	_, err = wt.Add("requirements.txt")
	require.NoError(t, err)
	_, err = wt.Add("main.py")
	require.NoError(t, err)
	secondCommit, err := wt.Commit("upgrade django", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	return dir, firstCommit.String(), secondCommit.String()
}

func TestAnalyzeComposesDiffAndRequirements(t *testing.T) {
	repoPath, first, second := newLocalRepo(t)

	report, err := comprehensive.Analyze(context.Background(), repoPath, first, second)
	require.NoError(t, err)

	require.Empty(t, report.DiffError)
	require.Empty(t, report.RequirementsErr)
	require.NotNil(t, report.Diff)
	require.NotNil(t, report.Requirements)

	require.NotEmpty(t, report.Summary)
	require.Contains(t, report.Recommendations, "request a peer review before merging")
	require.NotEmpty(t, report.NextSteps)
}

func TestAnalyzeDiffFailureDoesNotAbortRequirements(t *testing.T) {
	repoPath, first, second := newLocalRepo(t)

	report, err := comprehensive.Analyze(context.Background(), repoPath, first, "nonexistent-rev")
	require.NoError(t, err)

	require.NotEmpty(t, report.DiffError)
	// The requirements step still ran after the diff failed; it records its
	// own failure for the same missing revision.
	require.NotEmpty(t, report.RequirementsErr)
	_ = second
}
