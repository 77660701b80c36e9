package reqdiff_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/compat"
	"github.com/mcplane/mcpd/internal/gitrepo"
	"github.com/mcplane/mcpd/internal/reqdiff"
)

func repoWithManifests(t *testing.T, manifests ...string) (path string, shas []string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}

	for i, content := range manifests {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte(content), 0o644))
		_, err := wt.Add("requirements.txt")
		require.NoError(t, err)
		sha, err := wt.Commit("commit", &git.CommitOptions{Author: sig})
		require.NoError(t, err)
		_ = i
		shas = append(shas, sha.String())
	}

	return dir, shas
}

func TestAnalyzeExactPatchBumpIsLowRisk(t *testing.T) {
	repoPath, shas := repoWithManifests(t, "requests==2.26.0\n", "requests==2.26.1\n")

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	report, err := reqdiff.Analyze(context.Background(), ws, shas[0], shas[1])
	require.NoError(t, err)
	require.Equal(t, reqdiff.StatusOK, report.Status)

	changed, ok := report.Delta.Changed["requests"]
	require.True(t, ok)
	require.Equal(t, "2.26.0", changed.Old.Version)
	require.Equal(t, "2.26.1", changed.New.Version)

	require.GreaterOrEqual(t, report.IssueCounts.Low, 1)
	require.Equal(t, 0, report.IssueCounts.High)
}

func TestAnalyzeNoRequirementsAtEitherRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}
	_, err = wt.Commit("no manifest", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	ws, err := gitrepo.Open(context.Background(), dir)
	require.NoError(t, err)
	defer ws.Release()

	report, err := reqdiff.Analyze(context.Background(), ws, "HEAD", "HEAD")
	require.NoError(t, err)
	require.Equal(t, reqdiff.StatusNoRequirements, report.Status)
}

func TestDeltaMapsArePairwiseDisjoint(t *testing.T) {
	repoPath, shas := repoWithManifests(t,
		"alpha==1.0.0\nbeta==1.0.0\n",
		"alpha==2.0.0\ngamma==1.0.0\n",
	)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	report, err := reqdiff.Analyze(context.Background(), ws, shas[0], shas[1])
	require.NoError(t, err)

	seen := map[string]int{}
	for name := range report.Delta.Added {
		seen[name]++
	}
	for name := range report.Delta.Removed {
		seen[name]++
	}
	for name := range report.Delta.Changed {
		seen[name]++
	}
	for name, count := range seen {
		require.Equal(t, 1, count, "name %q appeared in more than one delta bucket", name)
	}

	require.Contains(t, report.Delta.Added, "gamma")
	require.Contains(t, report.Delta.Removed, "beta")
	require.Contains(t, report.Delta.Changed, "alpha")
}

func TestEveryAnalysisAppearsInExactlyOneRiskBucket(t *testing.T) {
	repoPath, shas := repoWithManifests(t,
		"requests==2.26.0\n",
		"requests==3.0.0\ndjango==4.0.0\n",
	)

	ws, err := gitrepo.Open(context.Background(), repoPath)
	require.NoError(t, err)
	defer ws.Release()

	report, err := reqdiff.Analyze(context.Background(), ws, shas[0], shas[1])
	require.NoError(t, err)

	total := report.IssueCounts.High + report.IssueCounts.Medium + report.IssueCounts.Low + report.IssueCounts.Unknown
	require.Equal(t, len(report.Analyses), total)

	for _, pa := range report.Analyses {
		require.Contains(t, []compat.RiskLevel{compat.RiskLow, compat.RiskMedium, compat.RiskHigh, compat.RiskUnknown}, pa.Risk)
	}
}
