// Package gitutil inspects the git working tree of an audit target.
package gitutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when the target is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// ChangedFiles lists files under root that are modified, added or untracked
// relative to HEAD. Paths are relative to root with forward slashes.
func ChangedFiles(root string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	top := resolve(wt.Filesystem.Root())
	base := resolve(root)

	var out []string
	for p, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		if st.Worktree == git.Deleted || (st.Staging == git.Deleted && st.Worktree != git.Untracked) {
			continue
		}
		rel, err := filepath.Rel(base, filepath.Join(top, filepath.FromSlash(p)))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out, nil
}

func resolve(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		p = real
	}
	return p
}
