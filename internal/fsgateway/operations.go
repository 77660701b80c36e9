package fsgateway

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/mcplane/mcpd/internal/apperr"
)

const iso8601 = "2006-01-02T15:04:05Z"

// statTimes extracts creation and access times from the platform-specific
// stat structure underlying info.Sys(). Linux has no true birth time in
// struct stat, so Ctim (last status change) stands in for CreatedAt, same
// as `ls -lc` reports it; Atim reports the last access time directly.
// Falls back to ModTime for both when Sys() isn't a *syscall.Stat_t.
func statTimes(info os.FileInfo) (created, accessed time.Time) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec), time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
}

// List returns the entries of the directory at path. Fails with
// KindValidation if path is not a directory.
func (g *Gateway) List(path string) ([]FsEntry, error) {
	r, err := g.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := r.fs.Stat(r.relPath)
	if err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("path '%s' does not exist", path))
	}
	if !info.IsDir() {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("path '%s' is not a directory", path))
	}

	entries, err := afero.ReadDir(r.fs, r.relPath)
	if err != nil {
		return nil, apperr.Internal("listing directory", err)
	}

	out := make([]FsEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FsEntry{
			Name:  entry.Name(),
			Path:  filepath.Join(path, entry.Name()),
			IsDir: entry.IsDir(),
			Size:  entry.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the UTF-8 decoded content of the file at path.
func (g *Gateway) Read(path string) (string, error) {
	r, err := g.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := r.fs.Stat(r.relPath)
	if err != nil {
		return "", apperr.NotFound(fmt.Sprintf("path '%s' does not exist", path))
	}
	if info.IsDir() {
		return "", apperr.New(apperr.KindValidation, fmt.Sprintf("path '%s' is a directory", path))
	}

	content, err := afero.ReadFile(r.fs, r.relPath)
	if err != nil {
		return "", apperr.Internal("reading file", err)
	}
	if !utf8.Valid(content) {
		return "", apperr.New(apperr.KindValidation, fmt.Sprintf("path '%s' is not valid UTF-8", path))
	}

	return string(content), nil
}

// ReadResult is one entry in the result of ReadMany: either Content is set
// or Err is, never both.
type ReadResult struct {
	Content string
	Err     string
}

// ReadMany reads every path in paths, isolating per-entry failures so the
// call as a whole never fails.
func (g *Gateway) ReadMany(paths []string) map[string]ReadResult {
	out := make(map[string]ReadResult, len(paths))
	for _, p := range paths {
		content, err := g.Read(p)
		if err != nil {
			out[p] = ReadResult{Err: err.Error()}
			continue
		}
		out[p] = ReadResult{Content: content}
	}
	return out
}

// WriteResult is the outcome of a Write call.
type WriteResult struct {
	Path string
	Size int
	OK   bool
}

// Write creates any missing intermediate directories and writes content to
// path, overwriting any existing file.
func (g *Gateway) Write(path, content string) (WriteResult, error) {
	r, err := g.resolve(path)
	if err != nil {
		return WriteResult{}, err
	}

	if err := r.fs.MkdirAll(filepath.Dir(r.relPath), 0o755); err != nil {
		return WriteResult{}, apperr.Internal("creating parent directories", err)
	}
	if err := afero.WriteFile(r.fs, r.relPath, []byte(content), 0o644); err != nil {
		return WriteResult{}, apperr.Internal("writing file", err)
	}

	return WriteResult{Path: path, Size: len(content), OK: true}, nil
}

// Mkdir creates path, including any missing parents. Idempotent.
func (g *Gateway) Mkdir(path string) error {
	r, err := g.resolve(path)
	if err != nil {
		return err
	}
	if err := r.fs.MkdirAll(r.relPath, 0o755); err != nil {
		return apperr.Internal("creating directory", err)
	}
	return nil
}

// Move relocates src to dst. Fails if dst already exists; creates dst's
// parent directory if needed. src and dst may resolve to different
// sandbox roots.
func (g *Gateway) Move(src, dst string) error {
	rsrc, err := g.resolve(src)
	if err != nil {
		return err
	}
	rdst, err := g.resolve(dst)
	if err != nil {
		return err
	}

	if _, err := rsrc.fs.Stat(rsrc.relPath); err != nil {
		return apperr.NotFound(fmt.Sprintf("source '%s' does not exist", src))
	}
	if _, err := rdst.fs.Stat(rdst.relPath); err == nil {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("destination '%s' already exists", dst))
	}

	if err := rdst.fs.MkdirAll(filepath.Dir(rdst.relPath), 0o755); err != nil {
		return apperr.Internal("creating destination directory", err)
	}

	if rsrc.fs == rdst.fs {
		if err := rsrc.fs.Rename(rsrc.relPath, rdst.relPath); err != nil {
			return apperr.Internal("moving path", err)
		}
		return nil
	}

	// Cross-root move: BasePathFs.Rename refuses paths outside its own
	// root, so fall back to a copy-then-remove across the two roots.
	if err := copyAcross(rsrc, rdst); err != nil {
		return apperr.Internal("moving path across sandbox roots", err)
	}
	if err := rsrc.fs.RemoveAll(rsrc.relPath); err != nil {
		return apperr.Internal("removing source after move", err)
	}
	return nil
}

func copyAcross(src, dst resolved) error {
	info, err := src.fs.Stat(src.relPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return afero.Walk(src.fs, src.relPath, func(p string, walkInfo os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			rel, err := filepath.Rel(src.relPath, p)
			if err != nil {
				return err
			}
			target := filepath.Join(dst.relPath, rel)
			if walkInfo.IsDir() {
				return dst.fs.MkdirAll(target, 0o755)
			}
			content, err := afero.ReadFile(src.fs, p)
			if err != nil {
				return err
			}
			return afero.WriteFile(dst.fs, target, content, walkInfo.Mode())
		})
	}

	content, err := afero.ReadFile(src.fs, src.relPath)
	if err != nil {
		return err
	}
	return afero.WriteFile(dst.fs, dst.relPath, content, info.Mode())
}

// Search walks root recursively, matching basenames against glob and
// excluding results matched by any of excludes.
func (g *Gateway) Search(root, glob string, excludes []string) ([]string, error) {
	r, err := g.resolve(root)
	if err != nil {
		return nil, err
	}

	info, err := r.fs.Stat(r.relPath)
	if err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("path '%s' does not exist", root))
	}
	if !info.IsDir() {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("path '%s' is not a directory", root))
	}

	var matches []string
	err = afero.Walk(r.fs, r.relPath, func(p string, walkInfo os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if walkInfo.IsDir() {
			return nil
		}

		ok, matchErr := filepath.Match(glob, walkInfo.Name())
		if matchErr != nil || !ok {
			return nil
		}

		for _, exclude := range excludes {
			if excluded, _ := filepath.Match(exclude, walkInfo.Name()); excluded {
				return nil
			}
		}

		rel, relErr := filepath.Rel(r.relPath, p)
		if relErr != nil {
			return nil
		}
		matches = append(matches, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("searching directory", err)
	}

	sort.Strings(matches)
	return matches, nil
}

// Info reports file metadata, rendering permissions as a stable
// 10-character mode string (e.g. "-rw-r--r--").
func (g *Gateway) Info(path string) (FileInfo, error) {
	r, err := g.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}

	var info os.FileInfo
	if lstatFs, ok := r.fs.(afero.Lstater); ok {
		var lstatCalled bool
		info, lstatCalled, err = lstatFs.LstatIfPossible(r.relPath)
		if err != nil || !lstatCalled {
			info, err = r.fs.Stat(r.relPath)
		}
	} else {
		info, err = r.fs.Stat(r.relPath)
	}
	if err != nil {
		return FileInfo{}, apperr.NotFound(fmt.Sprintf("path '%s' does not exist", path))
	}

	fileType := "file"
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		fileType = "link"
	case info.IsDir():
		fileType = "dir"
	}

	created, accessed := statTimes(info)

	return FileInfo{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        info.Size(),
		Type:        fileType,
		Permissions: renderMode(info.Mode()),
		CreatedAt:   created.UTC().Format(iso8601),
		ModifiedAt:  info.ModTime().UTC().Format(iso8601),
		AccessedAt:  accessed.UTC().Format(iso8601),
	}, nil
}

// renderMode renders a fs.FileMode as a ten-character ls-style string,
// e.g. drwxr-xr-x.
func renderMode(mode os.FileMode) string {
	var b strings.Builder

	switch {
	case mode&os.ModeDir != 0:
		b.WriteByte('d')
	case mode&os.ModeSymlink != 0:
		b.WriteByte('l')
	default:
		b.WriteByte('-')
	}

	perm := mode.Perm()
	triplets := "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			b.WriteByte(triplets[i])
		} else {
			b.WriteByte('-')
		}
	}

	return b.String()
}
