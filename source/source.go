// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/VozzyUp/vozzysmartoficial/manifest"
)

var ErrFileNotFound = errors.New("file not found in template source")

// Checkout is a synced view of the template repository pinned to a single
// revision. All reads resolve against that revision, not the worktree, so a
// concurrent pull cannot change what an in-flight apply downloads.
type Checkout interface {
	Revision() string
	ReadFile(path string) ([]byte, error)
}

// Reader produces checkouts of a template source.
type Reader interface {
	Sync(ctx context.Context, src manifest.Source) (Checkout, error)
}

var _ Reader = &CheckoutReader{}

// CheckoutReader maintains clone-or-pull checkouts of template repositories
// under a cache directory, one per repository.
type CheckoutReader struct {
	cacheDir string
	auth     *http.BasicAuth
}

func NewCheckoutReader(cacheDir string, auth *http.BasicAuth) *CheckoutReader {
	return &CheckoutReader{
		cacheDir: cacheDir,
		auth:     auth,
	}
}

func (r *CheckoutReader) Sync(ctx context.Context, src manifest.Source) (Checkout, error) {
	path := filepath.Join(r.cacheDir, filepath.FromSlash(src.RepositoryID))
	url := fmt.Sprintf("https://github.com/%s.git", src.RepositoryID)
	reference := plumbing.NewBranchReferenceName(src.Branch)

	var repo *git.Repository
	switch _, err := os.Stat(path); {
	case err == nil:
		// checkout exists, pull the latest changes
		repo, err = git.PlainOpen(path)
		if err != nil {
			return nil, err
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, err
		}
		if err := worktree.PullContext(ctx, &git.PullOptions{
			RemoteName:    "origin",
			ReferenceName: reference,
			SingleBranch:  true,
			Auth:          r.auth,
			Progress:      io.Discard,
		}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil, err
		}
	case os.IsNotExist(err):
		repo, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
			URL:           url,
			ReferenceName: reference,
			SingleBranch:  true,
			Auth:          r.auth,
			Progress:      io.Discard,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, err
	}

	return &checkout{commit: commit}, nil
}

type checkout struct {
	commit *object.Commit
}

func (c *checkout) Revision() string {
	return c.commit.Hash.String()
}

func (c *checkout) ReadFile(path string) ([]byte, error) {
	file, err := c.commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s@%s", ErrFileNotFound, path, c.commit.Hash)
	} else if err != nil {
		return nil, err
	}

	content, err := file.Contents()
	if err != nil {
		return nil, err
	}

	return []byte(content), nil
}
