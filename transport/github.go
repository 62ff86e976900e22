// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// callTimeout bounds each individual API call, not a whole pipeline.
var callTimeout = 15 * time.Second

var _ Committer = &GitHub{}

// GitHub lands template changes on the deployment's own repository through
// the git-data API. Writes never touch the working tree of the deployment;
// the hosting platform picks the commits up and redeploys.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHub builds a transport for an owner/name repository identifier.
func NewGitHub(token, repositoryID, branch string) (*GitHub, error) {
	owner, repo, ok := strings.Cut(repositoryID, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("repository id %q is not owner/name", repositoryID)
	}
	if token == "" {
		return nil, errors.New("github token is required for the remote transport")
	}

	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))

	return &GitHub{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
		branch: branch,
	}, nil
}

// CommitFile pushes one file as a single commit. The current content SHA is
// re-read immediately before writing to pick update-vs-create; this window
// is not a compare-and-swap, which is why multi-file applies go through
// CommitBatch instead.
func (g *GitHub) CommitFile(ctx context.Context, path string, content []byte, message string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(g.branch),
	}

	current, exists, err := g.getContents(ctx, path)
	if err != nil {
		return "", g.classify("read "+path, err)
	}
	if exists && current != nil {
		opts.SHA = current.SHA
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var written *github.RepositoryContentResponse
	if opts.SHA != nil {
		written, _, err = g.client.Repositories.UpdateFile(callCtx, g.owner, g.repo, path, opts)
	} else {
		written, _, err = g.client.Repositories.CreateFile(callCtx, g.owner, g.repo, path, opts)
	}
	if err != nil {
		return "", g.classify("write "+path, err)
	}

	return written.Commit.GetSHA(), nil
}

// ReadFile returns the current content of a file on the branch, reporting
// absence instead of an error when the file does not exist.
func (g *GitHub) ReadFile(ctx context.Context, path string) ([]byte, bool, error) {
	current, exists, err := g.getContents(ctx, path)
	if err != nil {
		return nil, false, g.classify("read "+path, err)
	}
	if !exists || current == nil {
		return nil, false, nil
	}

	content, err := current.GetContent()
	if err != nil {
		return nil, false, fmt.Errorf("%s/%s: decode %s: %w", g.owner, g.repo, path, err)
	}

	return []byte(content), true, nil
}

func (g *GitHub) getContents(ctx context.Context, path string) (*github.RepositoryContent, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	current, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, &github.RepositoryContentGetOptions{
		Ref: g.branch,
	})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return current, true, nil
}

// CommitBatch layers every changed file onto the branch's current tree and
// lands them as one commit. The ref move is the final step and is not
// forced, so a head moved by anyone else between resolve and update fails
// the whole batch and leaves the repository unchanged. Each API call gets
// its own deadline; a large batch is many calls, not one long one.
func (g *GitHub) CommitBatch(ctx context.Context, files []File, message string) (string, error) {
	refName := "refs/heads/" + g.branch
	ref, err := g.getRef(ctx, refName)
	if err != nil {
		return "", g.classify("resolve ref "+refName, err)
	}
	headSHA := ref.Object.GetSHA()

	head, err := g.getCommit(ctx, headSHA)
	if err != nil {
		return "", g.classify("resolve head commit", err)
	}

	entries := make([]*github.TreeEntry, 0, len(files))
	for _, file := range files {
		blob, err := g.createBlob(ctx, file.Content)
		if err != nil {
			return "", g.classify("create blob "+file.Path, err)
		}

		entries = append(entries, &github.TreeEntry{
			Path: github.String(file.Path),
			Mode: github.String("100644"),
			Type: github.String("blob"),
			SHA:  blob.SHA,
		})
	}

	// Unlisted files are preserved through tree inheritance from the head
	// commit's tree.
	tree, err := g.createTree(ctx, head.Tree.GetSHA(), entries)
	if err != nil {
		return "", g.classify("create tree", err)
	}

	commit, err := g.createCommit(ctx, message, tree, headSHA)
	if err != nil {
		return "", g.classify("create commit", err)
	}

	if err := g.updateRef(ctx, refName, commit.GetSHA()); err != nil {
		return "", g.classify("update ref "+refName, err)
	}

	return commit.GetSHA(), nil
}

func (g *GitHub) getRef(ctx context.Context, refName string) (*github.Reference, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	ref, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, refName)
	return ref, err
}

func (g *GitHub) getCommit(ctx context.Context, sha string) (*github.Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	commit, _, err := g.client.Git.GetCommit(ctx, g.owner, g.repo, sha)
	return commit, err
}

func (g *GitHub) createBlob(ctx context.Context, content []byte) (*github.Blob, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	encoded := base64.StdEncoding.EncodeToString(content)
	blob, _, err := g.client.Git.CreateBlob(ctx, g.owner, g.repo, &github.Blob{
		Content:  github.String(encoded),
		Encoding: github.String("base64"),
	})
	return blob, err
}

func (g *GitHub) createTree(ctx context.Context, baseTree string, entries []*github.TreeEntry) (*github.Tree, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	tree, _, err := g.client.Git.CreateTree(ctx, g.owner, g.repo, baseTree, entries)
	return tree, err
}

func (g *GitHub) createCommit(ctx context.Context, message string, tree *github.Tree, parentSHA string) (*github.Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	commit, _, err := g.client.Git.CreateCommit(ctx, g.owner, g.repo, &github.Commit{
		Message: github.String(message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.String(parentSHA)}},
	}, nil)
	return commit, err
}

func (g *GitHub) updateRef(ctx context.Context, refName, commitSHA string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, _, err := g.client.Git.UpdateRef(ctx, g.owner, g.repo, &github.Reference{
		Ref:    github.String(refName),
		Object: &github.GitObject{SHA: github.String(commitSHA)},
	}, false)
	return err
}

func (g *GitHub) classify(step string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrGatewayTimeout, step)
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		return fmt.Errorf("%w: %s/%s: %s: status %d: %v", ErrRemoteRejected, g.owner, g.repo, step, errResp.Response.StatusCode, err)
	}

	return fmt.Errorf("%s/%s: %s: %w", g.owner, g.repo, step, err)
}
