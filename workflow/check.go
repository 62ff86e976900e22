// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VozzyUp/vozzysmartoficial/manifest"
	"github.com/VozzyUp/vozzysmartoficial/pathguard"
	"github.com/VozzyUp/vozzysmartoficial/state"
)

var _ Workflow = &Check{}

type CheckConfig struct {
	StateStore state.Store
	Fetcher    manifest.Fetcher
	Log        *slog.Logger
}

// CheckResult is what the boundary reports back to the dashboard.
type CheckResult struct {
	CurrentVersion    string   `json:"currentVersion"`
	LatestVersion     string   `json:"latestVersion,omitempty"`
	HasUpdate         bool     `json:"hasUpdate"`
	Changelog         []string `json:"changelog,omitempty"`
	BreakingChanges   []string `json:"breakingChanges,omitempty"`
	RequiresMigration bool     `json:"requiresMigration"`
	FilesToUpdate     []string `json:"filesToUpdate,omitempty"`
}

// Check compares the installed template version against the remote
// manifest. It never mutates state: running it twice against an unchanged
// remote yields identical results.
type Check struct {
	stateStore state.Store
	fetcher    manifest.Fetcher
	log        *slog.Logger

	// Result is populated by Execute. CurrentVersion is filled as soon as
	// local state loads, so callers can still report the installed version
	// when the remote is unreachable.
	Result CheckResult
}

func NewCheck(config CheckConfig) *Check {
	return &Check{
		stateStore: config.StateStore,
		fetcher:    config.Fetcher,
		log:        config.Log,
	}
}

func (c *Check) Execute(ctx context.Context) error {
	record, err := c.stateStore.Load(ctx)
	if err != nil {
		return err
	}
	c.Result.CurrentVersion = record.InstalledVersion

	m, err := c.fetcher.Fetch(ctx, record.TemplateSource)
	if err != nil {
		return fmt.Errorf("checking %s: %w", record.TemplateSource.RepositoryID, err)
	}

	// Screen the manifest before reporting anything about it. A manifest
	// that wants protected files must never be shown as applicable.
	if validation := pathguard.ValidateFileList(m.FilesToUpdate, record.ProtectedPatterns); !validation.Valid {
		c.log.Warn("manifest blocked by protection policy",
			"version", m.Version,
			"blocked", validation.Blocked)
		return &ProtectedFilesError{Blocked: validation.Blocked}
	}

	// Pure string inequality, not semver ordering: a manifest that differs
	// in any direction is an applicable update. This keeps forced re-syncs
	// and manifest-driven rollbacks working.
	c.Result = CheckResult{
		CurrentVersion:    record.InstalledVersion,
		LatestVersion:     m.Version,
		HasUpdate:         record.InstalledVersion != m.Version,
		Changelog:         m.Changelog,
		BreakingChanges:   m.BreakingChanges,
		RequiresMigration: m.RequiresMigration,
		FilesToUpdate:     m.FilesToUpdate,
	}

	return nil
}
