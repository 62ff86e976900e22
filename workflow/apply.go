// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VozzyUp/vozzysmartoficial/deploy"
	"github.com/VozzyUp/vozzysmartoficial/manifest"
	"github.com/VozzyUp/vozzysmartoficial/pathguard"
	"github.com/VozzyUp/vozzysmartoficial/source"
	"github.com/VozzyUp/vozzysmartoficial/state"
	"github.com/VozzyUp/vozzysmartoficial/transport"
)

var _ Workflow = &Apply{}

type ApplyConfig struct {
	StateStore state.Store
	Fetcher    manifest.Fetcher
	Source     source.Reader
	// Files is set in filesystem mode, Committer in remote mode. Exactly
	// one must be non-nil.
	Files     transport.FileWriter
	Committer transport.Committer
	Trigger   deploy.Trigger
	Log       *slog.Logger
	// Now is the transaction clock; defaults to time.Now.
	Now func() time.Time
}

// ApplyResult is populated by Execute, fully on success and partially on
// failure (whatever was known at the point of error).
type ApplyResult struct {
	Version           string   `json:"version"`
	FilesUpdated      int      `json:"filesUpdated"`
	BackupDir         string   `json:"backupDir,omitempty"`
	Commits           []string `json:"commits,omitempty"`
	RedeployTriggered bool     `json:"redeployTriggered"`
}

// Apply downloads the manifest's files from the template source and lands
// them through whichever transport the deployment exposes, updating the
// state record's version fields as the final step.
type Apply struct {
	stateStore state.Store
	fetcher    manifest.Fetcher
	source     source.Reader
	files      transport.FileWriter
	committer  transport.Committer
	trigger    deploy.Trigger
	log        *slog.Logger
	now        func() time.Time

	rollbackFailures []string

	Result ApplyResult
}

func NewApply(config ApplyConfig) *Apply {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	trigger := config.Trigger
	if trigger == nil {
		trigger = deploy.NopTrigger{}
	}

	return &Apply{
		stateStore: config.StateStore,
		fetcher:    config.Fetcher,
		source:     config.Source,
		files:      config.Files,
		committer:  config.Committer,
		trigger:    trigger,
		log:        config.Log,
		now:        now,
	}
}

func (a *Apply) Execute(ctx context.Context) error {
	// Re-load and re-fetch: a previous check's result may have drifted.
	record, err := a.stateStore.Load(ctx)
	if err != nil {
		return err
	}

	m, err := a.fetcher.Fetch(ctx, record.TemplateSource)
	if err != nil {
		return fmt.Errorf("applying update for %s: %w", record.TemplateSource.RepositoryID, err)
	}

	if record.InstalledVersion == m.Version {
		return fmt.Errorf("%w (%s)", ErrNoUpdateNeeded, m.Version)
	}

	// Validated again right before writing, independently of check: the
	// manifest may have changed since and is untrusted either way.
	if validation := pathguard.ValidateFileList(m.FilesToUpdate, record.ProtectedPatterns); !validation.Valid {
		return &ProtectedFilesError{Blocked: validation.Blocked}
	}

	planned, err := normalizePlan(m.FilesToUpdate)
	if err != nil {
		return err
	}
	a.Result.Version = m.Version

	batch, err := a.download(ctx, record.TemplateSource, planned)
	if err != nil {
		return err
	}

	switch {
	case a.committer != nil:
		err = a.applyRemote(ctx, m, batch)
	case a.files != nil:
		err = a.applyFilesystem(ctx, m, batch)
	default:
		return fmt.Errorf("no transport configured")
	}
	if err != nil {
		return err
	}

	a.Result.FilesUpdated = len(batch)

	// Best effort only: a redeploy that fails to fire does not change the
	// outcome of the apply.
	if err := a.trigger.Trigger(ctx); err != nil {
		a.log.Warn("redeploy trigger failed", "error", err)
	} else {
		a.Result.RedeployTriggered = true
	}

	return nil
}

// normalizePlan canonicalizes the manifest's file list, dropping duplicates
// while preserving order. Validation already happened; normalization errors
// here mean the manifest changed shape mid-flight, so fail closed.
func normalizePlan(files []string) ([]string, error) {
	seen := make(map[string]struct{}, len(files))
	planned := make([]string, 0, len(files))
	for _, raw := range files {
		normalized, err := pathguard.Normalize(raw)
		if err != nil {
			return nil, &ProtectedFilesError{Blocked: []string{raw}}
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		planned = append(planned, normalized)
	}

	return planned, nil
}

func (a *Apply) download(ctx context.Context, src manifest.Source, planned []string) ([]transport.File, error) {
	if len(planned) == 0 {
		// Version-only bump: nothing to sync.
		return nil, nil
	}

	checkout, err := a.source.Sync(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("syncing template source %s: %w", src.RepositoryID, err)
	}
	a.log.Info("template source synced", "repository", src.RepositoryID, "revision", checkout.Revision())

	batch := make([]transport.File, 0, len(planned))
	for _, path := range planned {
		content, err := checkout.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", path, err)
		}
		batch = append(batch, transport.File{Path: path, Content: content})
	}

	return batch, nil
}

// applyFilesystem is commit-per-file with captured pre-images. Every
// targeted file that exists is backed up before the first write; a write
// failure stops the transaction and restores (or deletes) everything
// already written.
func (a *Apply) applyFilesystem(ctx context.Context, m manifest.Manifest, batch []transport.File) error {
	at := a.now()
	backupDir := fmt.Sprintf(".vozsmart-backups/%s-%d", m.Version, at.Unix())

	// Phase 1: capture pre-images. A file that does not exist yet has no
	// backup entry; its absence is the undo state.
	backups := make(map[string][]byte, len(batch))
	for _, file := range batch {
		previous, exists, err := a.files.Read(file.Path)
		if err != nil {
			return fmt.Errorf("backing up %s: %w", file.Path, err)
		}
		if !exists {
			continue
		}
		backups[file.Path] = previous
		if err := a.files.Write(backupDir+"/"+file.Path, previous); err != nil {
			return fmt.Errorf("backing up %s: %w", file.Path, err)
		}
	}
	if len(backups) > 0 {
		a.Result.BackupDir = backupDir
	}

	// Phase 2: roll forward, file by file.
	committed := make([]string, 0, len(batch))
	for _, file := range batch {
		if err := a.files.Write(file.Path, file.Content); err != nil {
			a.rollback(committed, backups)
			return &RollbackError{
				FailedFile:       file.Path,
				Cause:            err,
				RollbackFailures: a.rollbackFailures,
			}
		}
		committed = append(committed, file.Path)
	}

	// Final, atomic step: advance the state record.
	if err := a.stateStore.CommitVersion(ctx, m.Version, at); err != nil {
		a.rollback(committed, backups)
		return &RollbackError{
			FailedFile:       state.RecordFile,
			Cause:            err,
			RollbackFailures: a.rollbackFailures,
		}
	}

	return nil
}

func (a *Apply) rollback(committed []string, backups map[string][]byte) {
	a.rollbackFailures = nil
	for _, path := range committed {
		var err error
		if previous, ok := backups[path]; ok {
			err = a.files.Write(path, previous)
		} else {
			// Newly created by this transaction; removal restores absence.
			err = a.files.Remove(path)
		}
		if err != nil {
			a.log.Error("rollback step failed", "path", path, "error", err)
			a.rollbackFailures = append(a.rollbackFailures, fmt.Sprintf("%s: %v", path, err))
		}
	}
}

// applyRemote lands the whole batch as one commit, then the state record as
// a second. The branch-ref move inside CommitBatch is atomic and last, so
// there is no partial application to roll back.
func (a *Apply) applyRemote(ctx context.Context, m manifest.Manifest, batch []transport.File) error {
	at := a.now()
	message := fmt.Sprintf("chore(update): apply template v%s", m.Version)

	switch len(batch) {
	case 0:
		// version-only bump, only the state record changes
	case 1:
		// A single file does not need the batched pipeline; one content
		// commit triggers one deploy either way.
		sha, err := a.committer.CommitFile(ctx, batch[0].Path, batch[0].Content, message)
		if err != nil {
			return err
		}
		a.Result.Commits = append(a.Result.Commits, sha)
	default:
		// Batched mode keeps N files from fanning out into N deploys.
		sha, err := a.committer.CommitBatch(ctx, batch, message)
		if err != nil {
			return err
		}
		a.Result.Commits = append(a.Result.Commits, sha)
	}

	// The state record is committed separately; only its version and
	// timestamp fields change. The rewrite starts from the record as it
	// exists in the repository, so caller-owned fields edited there since
	// the last deploy survive. The local copy is only a fallback for a
	// repository that has no record yet.
	document, err := a.remoteRecordDocument(ctx, m.Version, at)
	if err != nil {
		return err
	}
	sha, err := a.committer.CommitFile(ctx, state.RecordFile, document,
		fmt.Sprintf("chore(update): record template v%s", m.Version))
	if err != nil {
		return err
	}
	a.Result.Commits = append(a.Result.Commits, sha)

	// Mirror the new version locally so subsequent checks see it without a
	// redeploy. Best effort: the committed record is the durable one, and a
	// serverless root is often not writable at all.
	if err := a.stateStore.CommitVersion(ctx, m.Version, at); err != nil {
		a.log.Warn("local state mirror not updated", "error", err)
	}

	return nil
}

// remoteRecordDocument renders the updated state record from whichever copy
// is being rewritten: the one in the deployment's repository when present,
// the local one otherwise.
func (a *Apply) remoteRecordDocument(ctx context.Context, version string, at time.Time) ([]byte, error) {
	current, exists, err := a.committer.ReadFile(ctx, state.RecordFile)
	if err != nil {
		return nil, err
	}
	if exists {
		return state.UpdateDocument(current, version, at)
	}

	return a.stateStore.UpdatedDocument(ctx, version, at)
}
