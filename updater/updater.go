// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/juju/fslock"
	"github.com/spf13/afero"

	"github.com/VozzyUp/vozzysmartoficial/deploy"
	"github.com/VozzyUp/vozzysmartoficial/engine"
	"github.com/VozzyUp/vozzysmartoficial/manifest"
	"github.com/VozzyUp/vozzysmartoficial/source"
	"github.com/VozzyUp/vozzysmartoficial/state"
	"github.com/VozzyUp/vozzysmartoficial/transport"
	"github.com/VozzyUp/vozzysmartoficial/workflow"
)

const (
	sourceCacheDir = "template-sources"
	lockFile       = "vozsmart-update.lock"

	// stateCacheTTL bounds how stale a check may see the settings record.
	stateCacheTTL = 30 * time.Second
)

var (
	ErrUpdateInProgress = errors.New("another update is already in progress")
	// ErrCredentialMissing means remote mode is configured without a token
	// to commit with.
	ErrCredentialMissing = errors.New("github token is required for remote apply")
)

type Config struct {
	// RootDir is the application root the template lives under.
	RootDir string
	// Auth is used for private template repositories; the zero value is
	// safe for public ones.
	Auth http.BasicAuth
	// GitHubToken enables the remote transport. When set together with
	// DeployRepository, applies land as commits instead of local writes.
	GitHubToken string
	// DeployRepository is the owner/name of the deployment's own
	// repository, empty for filesystem mode.
	DeployRepository string
	// DeployBranch defaults to main.
	DeployBranch string
	// VercelDeployHookURL and WebhookURL configure the redeploy trigger;
	// the Vercel hook wins when both are set.
	VercelDeployHookURL string
	WebhookURL          string

	Fs  afero.Fs
	Log *slog.Logger
}

// Updater wires the update synchronizer together and serializes mutating
// operations behind a file lock.
type Updater struct {
	rootDir  string
	fs       afero.Fs
	log      *slog.Logger
	executor workflow.Executor

	stateFile   *state.FileStore
	stateCached *state.CachedStore
	fetcher     manifest.Fetcher
	source      source.Reader
	trigger     deploy.Trigger

	githubToken      string
	deployRepository string
	deployBranch     string

	lock     *fslock.Lock
	lockPath string
}

func New(config Config) (*Updater, error) {
	if config.RootDir == "" {
		return nil, errors.New("root directory is required")
	}
	fs := config.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	// Scratch artifacts (the update lock and the template-source checkout
	// cache) live on the real filesystem. In remote mode the application
	// root is typically a read-only serverless bundle, so they go under the
	// system temp directory instead.
	scratchDir := filepath.Join(config.RootDir, "tmp")
	if config.DeployRepository != "" {
		scratchDir = filepath.Join(os.TempDir(), "vozsmart-sync",
			strings.ReplaceAll(config.DeployRepository, "/", "-"))
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, err
	}

	branch := config.DeployBranch
	if branch == "" {
		branch = "main"
	}

	var trigger deploy.Trigger = deploy.NopTrigger{}
	switch {
	case config.VercelDeployHookURL != "":
		trigger = deploy.NewVercelHook(config.VercelDeployHookURL)
	case config.WebhookURL != "":
		trigger = deploy.NewWebhook(config.WebhookURL)
	}

	auth := config.Auth
	var sourceAuth *http.BasicAuth
	if auth.Username != "" || auth.Password != "" {
		sourceAuth = &auth
	}

	stateFile := state.NewFileStore(fs, config.RootDir)
	lockPath := filepath.Join(scratchDir, lockFile)

	return &Updater{
		rootDir:          config.RootDir,
		fs:               fs,
		log:              config.Log,
		executor:         engine.NewWorkflowEngine(),
		stateFile:        stateFile,
		stateCached:      state.NewCachedStore(stateFile, stateCacheTTL),
		fetcher:          manifest.NewHTTPFetcher(),
		source:           source.NewCheckoutReader(filepath.Join(scratchDir, sourceCacheDir), sourceAuth),
		trigger:          trigger,
		githubToken:      config.GitHubToken,
		deployRepository: config.DeployRepository,
		deployBranch:     branch,
		lock:             fslock.New(lockPath),
		lockPath:         lockPath,
	}, nil
}

// RemoteMode reports whether applies land as repository commits rather than
// direct filesystem writes.
func (u *Updater) RemoteMode() bool {
	return u.deployRepository != ""
}

// Check compares the installed version against the remote manifest. It
// takes no lock and mutates nothing.
func (u *Updater) Check(ctx context.Context) (workflow.CheckResult, error) {
	check := workflow.NewCheck(workflow.CheckConfig{
		StateStore: u.stateCached,
		Fetcher:    u.fetcher,
		Log:        u.log,
	})

	err := u.executor.Execute(ctx, check)
	return check.Result, err
}

// Apply runs one update transaction to completion. Concurrent calls are
// refused: two applies interleaving their backup/write/rollback sequences
// against the same files would corrupt both.
func (u *Updater) Apply(ctx context.Context) (workflow.ApplyResult, error) {
	if err := u.lock.TryLock(); err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return workflow.ApplyResult{}, fmt.Errorf("%w: %v", ErrUpdateInProgress, err)
		}
		return workflow.ApplyResult{}, fmt.Errorf("acquiring update lock %s: %w", u.lockPath, err)
	}
	defer func() {
		_ = u.lock.Unlock()
	}()

	config := workflow.ApplyConfig{
		// The uncached store: apply never trusts a previous check's view.
		StateStore: u.stateFile,
		Fetcher:    u.fetcher,
		Source:     u.source,
		Trigger:    u.trigger,
		Log:        u.log,
	}

	if u.RemoteMode() {
		if u.githubToken == "" {
			return workflow.ApplyResult{}, ErrCredentialMissing
		}
		committer, err := transport.NewGitHub(u.githubToken, u.deployRepository, u.deployBranch)
		if err != nil {
			return workflow.ApplyResult{}, err
		}
		config.Committer = committer
	} else {
		files, err := transport.NewFilesystem(u.fs, u.rootDir)
		if err != nil {
			return workflow.ApplyResult{}, err
		}
		config.Files = files
	}

	apply := workflow.NewApply(config)
	err := u.executor.Execute(ctx, apply)

	// The record changed under the cache on success (and possibly on a
	// remote-mode failure after the state commit); drop it either way.
	u.stateCached.Invalidate()

	return apply.Result, err
}
