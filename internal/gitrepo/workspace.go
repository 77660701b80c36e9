// Package gitrepo manages scoped, single-request clones of remote Git
// repositories (C4) and extracts structured diffs from them (C5). It
// replaces original_source/mcp/git_service.py's GitRepository/GitService
// shell-and-GitPython combination with an in-process go-git client so no
// subprocess is ever spawned.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mcplane/mcpd/internal/apperr"
)

// CommitRef identifies a single commit, resolved from a revision string.
type CommitRef struct {
	SHA     string
	Message string
	Author  string
	Date    string
}

// Workspace is a scoped, temporary clone of a single remote repository.
// Every Workspace is owned by exactly one in-flight request; Release must
// run on every exit path, including panics and context cancellation.
type Workspace struct {
	RepoURL string
	Path    string

	repo *git.Repository
}

// Open performs a shallow (depth 1) clone of repoURL into a fresh temporary
// directory. Two Workspaces opened on the same URL are fully independent
// and share nothing.
func Open(ctx context.Context, repoURL string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "mcpd-workspace-*")
	if err != nil {
		return nil, apperr.Internal("creating workspace directory", err)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
		Tags:  git.NoTags,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, apperr.CloneFailed(fmt.Sprintf("cloning %s", repoURL), err)
	}

	return &Workspace{RepoURL: repoURL, Path: dir, repo: repo}, nil
}

// Release deletes the workspace's temporary directory. Safe to call more
// than once; subsequent calls are no-ops.
func (w *Workspace) Release() {
	if w.Path == "" {
		return
	}
	os.RemoveAll(w.Path)
	w.Path = ""
}

// ResolveCommit resolves a revision string (branch, tag, or SHA) to a
// CommitRef, fetching it on demand if the shallow clone does not already
// have it.
func (w *Workspace) ResolveCommit(ctx context.Context, rev string) (CommitRef, error) {
	commit, err := w.commitObject(ctx, rev)
	if err != nil {
		return CommitRef{}, err
	}
	return commitRefFrom(commit), nil
}

// commitObject resolves rev to a commit object, fetching it on demand with
// depth 1 if the current shallow history does not contain it.
func (w *Workspace) commitObject(ctx context.Context, rev string) (*object.Commit, error) {
	hash, err := w.repo.ResolveRevision(plumbing.Revision(rev))
	if err == nil {
		commit, cerr := w.repo.CommitObject(*hash)
		if cerr == nil {
			return commit, nil
		}
	}

	if ferr := w.fetchRevision(ctx, rev); ferr != nil {
		return nil, apperr.NotFound(fmt.Sprintf("revision %s not found: %v", rev, ferr))
	}

	hash, err = w.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("revision %s not found", rev))
	}
	commit, err := w.repo.CommitObject(*hash)
	if err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("revision %s not found", rev))
	}
	return commit, nil
}

// fetchRevision fetches rev from origin at depth 1 into refs/mcpd/<rev>,
// used when a shallow clone is missing a revision referenced by a diff
// request. If that fetch fails it falls back to a depth-1 fetch of
// origin's default refs. It does not deepen existing history, so a
// relative revision such as HEAD~1 does not become reachable this way.
func (w *Workspace) fetchRevision(ctx context.Context, rev string) error {
	remote, err := w.repo.Remote("origin")
	if err != nil {
		return err
	}

	refSpec := config.RefSpec(fmt.Sprintf("+%s:refs/mcpd/%s", rev, rev))
	err = remote.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{refSpec},
		Depth:    1,
		Tags:     git.NoTags,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		// rev may already be a full SHA reachable without a refspec rewrite;
		// fall back to fetching everything shallowly from HEAD.
		err2 := remote.FetchContext(ctx, &git.FetchOptions{Depth: 1, Tags: git.NoTags})
		if err2 != nil && err2 != git.NoErrAlreadyUpToDate {
			return err
		}
	}
	return nil
}

// FileContentAt returns the content of path as it existed at revision, or
// nil if the file does not exist at that revision.
func (w *Workspace) FileContentAt(ctx context.Context, revision, path string) ([]byte, error) {
	commit, err := w.commitObject(ctx, revision)
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, apperr.Internal("reading tree", err)
	}

	file, err := tree.File(path)
	if err != nil {
		return nil, nil
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, apperr.Internal("reading file blob", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperr.Internal("reading file blob", err)
	}
	return content, nil
}

func commitRefFrom(commit *object.Commit) CommitRef {
	return CommitRef{
		SHA:     commit.Hash.String(),
		Message: trimTrailingNewlines(commit.Message),
		Author:  commit.Author.Name,
		Date:    commit.Author.When.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func trimTrailingNewlines(s string) string {
	return string(bytes.TrimRight([]byte(s), "\n"))
}
