package gitrepo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcplane/mcpd/internal/apperr"
)

// Search walks the checked-out working tree (excluding .git) and returns
// the relative paths of files containing a literal substring match of
// pattern. Grounded on original_source/mcp/git_service.py's
// find_files_by_content, done in-process instead of shelling out to grep.
func (w *Workspace) Search(ctx context.Context, pattern string) ([]string, error) {
	var matches []string
	needle := []byte(pattern)

	err := filepath.Walk(w.Path, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		content, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		if bytes.Contains(content, needle) {
			rel, relErr := filepath.Rel(w.Path, p)
			if relErr == nil {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("searching workspace", err)
	}

	return matches, nil
}

// Structure summarizes the checked-out tree: total file count, a
// count-by-extension breakdown, and the HEAD commit. Grounded on
// git_service.py's analyze_repo / _get_directory_structure, generalized
// from that function's hardcoded python/js/html counters to an arbitrary
// extension map.
type Structure struct {
	FileCount           int
	FileStatsByExtension map[string]int
	LastCommit          CommitRef
}

func (w *Workspace) Structure(ctx context.Context) (*Structure, error) {
	head, err := w.commitObject(ctx, "HEAD")
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int)
	fileCount := 0

	err = filepath.Walk(w.Path, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		fileCount++
		ext := strings.TrimPrefix(filepath.Ext(p), ".")
		if ext == "" {
			ext = "(none)"
		}
		stats[ext]++
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("walking workspace", err)
	}

	return &Structure{
		FileCount:            fileCount,
		FileStatsByExtension: stats,
		LastCommit:           commitRefFrom(head),
	}, nil
}
