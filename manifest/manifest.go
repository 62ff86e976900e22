// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

// Manifest describes the latest published template version and which files
// must change to reach it. It is fetched from the template source on every
// check and apply and is treated as untrusted input: callers must screen
// Files through the protection policy before any I/O.
type Manifest struct {
	Version           string   `json:"version"`
	Changelog         []string `json:"changelog"`
	FilesToUpdate     []string `json:"filesToUpdate"`
	RequiresMigration bool     `json:"requiresMigration"`
	BreakingChanges   []string `json:"breakingChanges"`
}
