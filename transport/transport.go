// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"errors"
)

var (
	ErrRootReadOnly   = errors.New("application root is not writable")
	ErrGatewayTimeout = errors.New("remote repository timed out")
	ErrRemoteRejected = errors.New("remote repository rejected the request")
)

// File is one planned change: a normalized repository-relative path and the
// template content that should land there.
type File struct {
	Path    string
	Content []byte
}

// FileWriter is the filesystem-mode write surface. Paths are relative to
// the application root.
type FileWriter interface {
	Read(path string) (content []byte, exists bool, err error)
	Write(path string, content []byte) error
	Remove(path string) error
}

// Committer is the remote-mode write surface: changes land as commits on
// the deployment's repository instead of direct writes.
type Committer interface {
	// ReadFile returns the file's current content on the target branch,
	// reporting absence instead of an error.
	ReadFile(ctx context.Context, path string) (content []byte, exists bool, err error)
	// CommitFile lands a single file as its own commit and returns the
	// commit SHA.
	CommitFile(ctx context.Context, path string, content []byte, message string) (string, error)
	// CommitBatch lands every file in one commit, returning its SHA. Either
	// the whole batch lands or the branch is left untouched.
	CommitBatch(ctx context.Context, files []File, message string) (string, error)
}
