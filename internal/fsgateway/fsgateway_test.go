package fsgateway_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/fsgateway"
)

func newGateway(t *testing.T) (*fsgateway.Gateway, string) {
	t.Helper()
	root := t.TempDir()
	gw, err := fsgateway.New([]string{root})
	require.NoError(t, err)
	return gw, root
}

func TestWriteThenRead(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "nested", "file.txt")

	res, err := gw.Write(path, "hello\n")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, 6, res.Size)

	content, err := gw.Read(path)
	require.NoError(t, err)
	require.Equal(t, "hello\n", content)
}

func TestReadDirectoryFails(t *testing.T) {
	gw, root := newGateway(t)
	_, err := gw.Read(root)
	require.Error(t, err)
}

func TestEditWithFailedOperation(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "file.txt")
	_, err := gw.Write(path, "alpha\nbeta\ngamma\n")
	require.NoError(t, err)

	result, err := gw.Edit(path, []fsgateway.EditOperation{
		{OldText: "alpha", NewText: "ALPHA"},
		{OldText: "delta", NewText: "DELTA"},
		{OldText: "gamma", NewText: "GAMMA"},
	}, false)
	require.NoError(t, err)

	require.Len(t, result.Applied, 2)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "text not found in file", result.Failed[0].Reason)
	require.Contains(t, result.Diff, "Line 1:")
	require.Contains(t, result.Diff, "Line 3:")

	content, err := gw.Read(path)
	require.NoError(t, err)
	require.Equal(t, "ALPHA\nbeta\nGAMMA\n", content)
}

func TestEditDryRunLeavesFileUntouched(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "file.txt")
	_, err := gw.Write(path, "alpha\nbeta\n")
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = gw.Edit(path, []fsgateway.EditOperation{{OldText: "alpha", NewText: "ALPHA"}}, true)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSandboxEscapeIsRejected(t *testing.T) {
	gw, root := newGateway(t)
	escaped := filepath.Join(root, "..", "etc", "passwd")

	_, err := gw.Read(escaped)
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindPermissionDenied, appErr.Kind)
}

func TestMoveFailsIfDestinationExists(t *testing.T) {
	gw, root := newGateway(t)
	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	_, err := gw.Write(src, "one")
	require.NoError(t, err)
	_, err = gw.Write(dst, "two")
	require.NoError(t, err)

	err = gw.Move(src, dst)
	require.Error(t, err)
}

func TestMkdirIsIdempotent(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "a", "b", "c")

	require.NoError(t, gw.Mkdir(path))
	require.NoError(t, gw.Mkdir(path))
}

func TestListOnlyAcceptsDirectories(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "file.txt")
	_, err := gw.Write(path, "x")
	require.NoError(t, err)

	_, err = gw.List(path)
	require.Error(t, err)
}

func TestReadManyIsolatesPerEntryErrors(t *testing.T) {
	gw, root := newGateway(t)
	ok := filepath.Join(root, "ok.txt")
	_, err := gw.Write(ok, "fine")
	require.NoError(t, err)

	results := gw.ReadMany([]string{ok, filepath.Join(root, "missing.txt")})
	require.Equal(t, "fine", results[ok].Content)
	require.NotEmpty(t, results[filepath.Join(root, "missing.txt")].Err)
}

func TestInfoRendersStableModeString(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "file.txt")
	_, err := gw.Write(path, "x")
	require.NoError(t, err)

	info, err := gw.Info(path)
	require.NoError(t, err)
	require.Len(t, info.Permissions, 10)
	require.Equal(t, "file", info.Type)
}

func TestInfoPopulatesAllThreeTimestamps(t *testing.T) {
	gw, root := newGateway(t)
	path := filepath.Join(root, "file.txt")
	_, err := gw.Write(path, "x")
	require.NoError(t, err)

	info, err := gw.Info(path)
	require.NoError(t, err)

	require.NotEmpty(t, info.CreatedAt)
	require.NotEmpty(t, info.ModifiedAt)
	require.NotEmpty(t, info.AccessedAt)

	for _, ts := range []string{info.CreatedAt, info.ModifiedAt, info.AccessedAt} {
		_, err := time.Parse("2006-01-02T15:04:05Z", ts)
		require.NoError(t, err)
	}
}
