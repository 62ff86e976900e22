// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/VozzyUp/vozzysmartoficial/manifest"
)

// RecordFile is the well-known name of the update-state record, relative to
// the application root. The same path mirrors the record inside the remote
// repository when the remote transport is used.
const RecordFile = "vozsmart.config.json"

var ErrNotConfigured = errors.New("update state record not found")

// Record is the only durable entity of the updater: the installed template
// version, where updates come from, and which extra paths the deployment
// protects. Only InstalledVersion and LastUpdateAt are ever mutated by an
// automated update; the remaining fields are caller-owned.
type Record struct {
	InstalledVersion  string          `json:"installedVersion"`
	LastUpdateAt      *time.Time      `json:"lastUpdateAt"`
	TemplateSource    manifest.Source `json:"templateSource"`
	ProtectedPatterns []string        `json:"protectedPatterns"`
}

// Store reads and advances the update-state record.
type Store interface {
	// Load returns the current record, or ErrNotConfigured if none exists.
	Load(ctx context.Context) (Record, error)
	// UpdatedDocument renders the record document with only the version and
	// timestamp fields replaced, without writing it anywhere.
	UpdatedDocument(ctx context.Context, version string, at time.Time) ([]byte, error)
	// CommitVersion persists the version and timestamp fields. Every other
	// field of the stored document is preserved byte for byte.
	CommitVersion(ctx context.Context, version string, at time.Time) error
}

var _ Store = &FileStore{}

// FileStore keeps the record as a JSON document at RecordFile under the
// application root.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, rootDir string) *FileStore {
	return &FileStore{
		fs:   fs,
		path: filepath.Join(rootDir, RecordFile),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (Record, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("%w at %s", ErrNotConfigured, s.path)
	} else if err != nil {
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(b, &record); err != nil {
		return Record{}, fmt.Errorf("corrupt state record %s: %w", s.path, err)
	}

	return record, nil
}

func (s *FileStore) UpdatedDocument(_ context.Context, version string, at time.Time) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrNotConfigured, s.path)
	} else if err != nil {
		return nil, err
	}

	return UpdateDocument(b, version, at)
}

func (s *FileStore) CommitVersion(ctx context.Context, version string, at time.Time) error {
	updated, err := s.UpdatedDocument(ctx, version, at)
	if err != nil {
		return err
	}

	return afero.WriteFile(s.fs, s.path, updated, 0o644)
}

// UpdateDocument swaps exactly the installedVersion and lastUpdateAt keys
// in a raw record document. Working on json.RawMessage keeps every
// caller-owned field (template source, protected patterns, anything the
// dashboard added) byte-identical through an automated update. Exported so
// remote applies can rewrite the copy of the record that actually lives in
// the deployment's repository.
func UpdateDocument(doc []byte, version string, at time.Time) ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("corrupt state record: %w", err)
	}

	versionJSON, err := json.Marshal(version)
	if err != nil {
		return nil, err
	}
	atJSON, err := json.Marshal(at.UTC())
	if err != nil {
		return nil, err
	}
	fields["installedVersion"] = versionJSON
	fields["lastUpdateAt"] = atJSON

	return json.MarshalIndent(fields, "", "  ")
}
