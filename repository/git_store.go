package repository

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/declarr/declarr/faults"
)

// GitStore writes dumps into a git worktree and commits each one. The
// repository is initialized on first use when the directory is not already a
// worktree.
type GitStore struct {
	files       *FilesystemStore
	authorName  string
	authorEmail string
}

func NewGitStore(baseDir, authorName, authorEmail string) (*GitStore, error) {
	files, err := NewFilesystemStore(baseDir)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(authorName) == "" {
		authorName = "declarr"
	}
	if strings.TrimSpace(authorEmail) == "" {
		authorEmail = "declarr@localhost"
	}
	return &GitStore{files: files, authorName: authorName, authorEmail: authorEmail}, nil
}

func (s *GitStore) Write(name string, data []byte) (string, error) {
	path, err := s.files.Write(name, data)
	if err != nil {
		return "", err
	}

	repo, root, err := s.openRepo()
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", internalGitError("dump path is outside the repository", err)
	}
	rel = filepath.ToSlash(rel)

	wt, err := repo.Worktree()
	if err != nil {
		return "", internalGitError("failed to open worktree", err)
	}
	if _, err := wt.Add(rel); err != nil {
		return "", internalGitError(fmt.Sprintf("failed to stage %q", rel), err)
	}

	changed, err := hasStagedChange(wt, rel)
	if err != nil {
		return "", err
	}
	if !changed {
		return path, nil
	}

	signature := object.Signature{Name: s.authorName, Email: s.authorEmail, When: time.Now()}
	message := fmt.Sprintf("Dump %s", rel)
	if _, err := wt.Commit(message, &git.CommitOptions{Author: &signature, Committer: &signature}); err != nil {
		return "", internalGitError("failed to commit dump", err)
	}
	return path, nil
}

func (s *GitStore) openRepo() (*git.Repository, string, error) {
	baseDir := s.files.baseDir
	repo, err := git.PlainOpenWithOptions(baseDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, "", internalGitError("failed to open dump repository", err)
		}
		repo, err = git.PlainInit(baseDir, false)
		if err != nil {
			return nil, "", internalGitError("failed to initialize dump repository", err)
		}
	}
	return repo, repoRoot(repo, baseDir), nil
}

func repoRoot(repo *git.Repository, fallback string) string {
	wt, err := repo.Worktree()
	if err != nil {
		return fallback
	}
	return wt.Filesystem.Root()
}

func hasStagedChange(wt *git.Worktree, rel string) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, internalGitError("failed to read worktree status", err)
	}
	entry, ok := status[rel]
	if !ok {
		return false, nil
	}
	return entry.Staging != git.Unmodified, nil
}

func internalGitError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
