// Package fsgateway implements the sandboxed Filesystem Gateway (C7).
// Every operation is scoped to a fixed list of allowed root directories.
// Containment is enforced by handing each operation an afero.BasePathFs
// rooted at the matching allowed directory, so a "../../etc/passwd"-style
// path can never walk out of its root; symlink targets are re-validated on
// top of that, since BasePathFs only constrains the path string, not where
// a traversed symlink resolves to. Grounded on
// original_source/mcp/filesystem_service.py's FilesystemService.
package fsgateway

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/mcplane/mcpd/internal/apperr"
)

// FsEntry is a single directory listing entry.
type FsEntry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// FileInfo is the result of an info(path) call.
type FileInfo struct {
	Path        string
	Name        string
	Size        int64
	Type        string // "file", "dir", or "link"
	Permissions string // stable 10-character mode string, e.g. "-rw-r--r--"
	CreatedAt   string // ISO8601
	ModifiedAt  string // ISO8601
	AccessedAt  string // ISO8601
}

// Gateway sandboxes filesystem access to a fixed set of allowed root
// directories, one afero.BasePathFs per root.
type Gateway struct {
	roots []string
	bases []afero.Fs
}

// New constructs a Gateway rooted at the real OS filesystem, sandboxed to
// allowedDirs. Each entry becomes its own BasePathFs.
func New(allowedDirs []string) (*Gateway, error) {
	if len(allowedDirs) == 0 {
		return nil, apperr.Validation("allowed_dirs", "at least one allowed directory is required")
	}

	osFs := afero.NewOsFs()
	roots := make([]string, 0, len(allowedDirs))
	bases := make([]afero.Fs, 0, len(allowedDirs))
	for _, dir := range allowedDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, apperr.Internal("resolving allowed directory", err)
		}
		root := filepath.Clean(abs)
		roots = append(roots, root)
		bases = append(bases, afero.NewBasePathFs(osFs, root))
	}

	return &Gateway{roots: roots, bases: bases}, nil
}

// AllowedDirectories returns the configured sandbox roots.
func (g *Gateway) AllowedDirectories() []string {
	out := append([]string(nil), g.roots...)
	sort.Strings(out)
	return out
}

// resolved is a path that has been verified to live within a sandbox root,
// expressed both as the root-relative path BasePathFs expects and the
// fs handle scoped to that root.
type resolved struct {
	fs       afero.Fs
	relPath  string
	rootPath string // absolute path, for PermissionDenied / display messages
}

// resolve canonicalizes path, picks the allowed root it falls under, and
// returns a handle scoped to that root via BasePathFs. Symlinks are
// traversed for content, but the resolved target is re-validated against
// the same root set, since BasePathFs does not do this itself.
func (g *Gateway) resolve(path string) (resolved, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return resolved{}, apperr.PermissionDenied("path could not be resolved")
	}
	clean := filepath.Clean(abs)

	rootIdx := g.rootIndexFor(clean)
	if rootIdx < 0 {
		return resolved{}, apperr.PermissionDenied("path '" + path + "' is not within an allowed directory")
	}

	if target, err := filepath.EvalSymlinks(clean); err == nil && g.rootIndexFor(target) < 0 {
		return resolved{}, apperr.PermissionDenied("symlink target for '" + path + "' escapes the allowed directories")
	}

	rel, err := filepath.Rel(g.roots[rootIdx], clean)
	if err != nil {
		return resolved{}, apperr.PermissionDenied("path '" + path + "' is not within an allowed directory")
	}

	return resolved{fs: g.bases[rootIdx], relPath: rel, rootPath: clean}, nil
}

func (g *Gateway) rootIndexFor(path string) int {
	for i, root := range g.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return i
		}
	}
	return -1
}
