// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoUpdateNeeded = errors.New("already on the latest template version")

// Workflow is a single update operation executed to completion.
type Workflow interface {
	Execute(ctx context.Context) error
}

// Executor runs workflows.
type Executor interface {
	Execute(ctx context.Context, workflow Workflow) error
}

// ProtectedFilesError is raised when a manifest's file list touches paths
// the protection policy forbids. It beats every success path: a manifest is
// untrusted input and must never be presented as safe to apply.
type ProtectedFilesError struct {
	// Blocked holds the offending paths exactly as the manifest spelled
	// them, in manifest order.
	Blocked []string
}

func (e *ProtectedFilesError) Error() string {
	return fmt.Sprintf("manifest references protected files: %s", strings.Join(e.Blocked, ", "))
}

// RollbackError reports a filesystem-mode apply that failed mid-write and
// was rolled back. Rollback is best effort: failures restoring individual
// files are collected, not escalated.
type RollbackError struct {
	// FailedFile is the write that aborted the transaction.
	FailedFile string
	Cause      error
	// RollbackFailures lists files whose restore also failed, with reasons,
	// for operator follow-up.
	RollbackFailures []string
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("update rolled back: writing %s failed: %v", e.FailedFile, e.Cause)
}

func (e *RollbackError) Unwrap() error {
	return e.Cause
}
