package gitrepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/gitrepo"
)

// newLocalRepo creates a throwaway on-disk repository with two commits so
// tests can exercise Workspace.Open/Diff/Search against a real git history
// without reaching the network.
func newLocalRepo(t *testing.T) (path string, firstSHA, secondSHA string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}

	writeFile("requirements.txt", "requests==2.26.0\n")
	first, err := wt.Commit("initial commit", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	writeFile("requirements.txt", "requests==2.27.0\n")
	writeFile("app.py", "print('hello')\n")
	second, err := wt.Commit("bump requests", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	return dir, first.String(), second.String()
}

func TestOpenClonesAndReleaseCleansUp(t *testing.T) {
	repoPath, _, _ := newLocalRepo(t)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	require.DirExists(t, ws.Path)

	clonePath := ws.Path
	ws.Release()
	require.NoDirExists(t, clonePath)
}

func TestOpenUnreachableURLReturnsCloneFailed(t *testing.T) {
	_, err := gitrepo.Open(context.Background(), "/nonexistent/path/to/repo")
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindCloneFailed, appErr.Kind)
}

func TestResolveCommit(t *testing.T) {
	repoPath, _, secondSHA := newLocalRepo(t)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	ref, err := ws.ResolveCommit(context.Background(), "HEAD")
	require.NoError(t, err)
	require.Equal(t, secondSHA, ref.SHA)
	require.Equal(t, "bump requests", ref.Message)
}

func TestFileContentAtReturnsNilForMissingFile(t *testing.T) {
	repoPath, _, _ := newLocalRepo(t)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	content, err := ws.FileContentAt(context.Background(), "HEAD", "does-not-exist.txt")
	require.NoError(t, err)
	require.Nil(t, content)
}

func TestSearchFindsSubstring(t *testing.T) {
	repoPath, _, _ := newLocalRepo(t)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	matches, err := ws.Search(context.Background(), "hello")
	require.NoError(t, err)
	require.Contains(t, matches, "app.py")
}

func TestDiffReportsFileChangesAndCounts(t *testing.T) {
	repoPath, firstSHA, secondSHA := newLocalRepo(t)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	report, err := ws.Diff(context.Background(), firstSHA, secondSHA)
	require.NoError(t, err)
	require.Equal(t, firstSHA, report.BaseCommit.SHA)
	require.Equal(t, secondSHA, report.TargetCommit.SHA)
	require.Equal(t, 2, report.TotalFiles)

	var sawRequirements, sawApp bool
	for _, fc := range report.Files {
		switch fc.Path {
		case "requirements.txt":
			sawRequirements = true
			require.Equal(t, gitrepo.ChangeModified, fc.ChangeType)
			require.Equal(t, 1, fc.Additions)
			require.Equal(t, 1, fc.Deletions)
		case "app.py":
			sawApp = true
			require.Equal(t, gitrepo.ChangeAdded, fc.ChangeType)
			require.Equal(t, 1, fc.Additions)
		}
	}
	require.True(t, sawRequirements)
	require.True(t, sawApp)
}

func TestStructureCountsFilesByExtension(t *testing.T) {
	repoPath, _, _ := newLocalRepo(t)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	st, err := ws.Structure(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, st.FileStatsByExtension["py"])
	require.Equal(t, 1, st.FileStatsByExtension["txt"])
	require.Equal(t, 2, st.FileCount)
}
