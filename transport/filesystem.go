// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var _ FileWriter = &Filesystem{}

// Filesystem reads and writes files relative to a fixed application root.
type Filesystem struct {
	fs   afero.Fs
	root string
}

// NewFilesystem probes that the root is actually writable before returning
// a transport. On serverless runtimes the durable tree is read-only and
// only a scratch directory accepts writes; applying there would lose every
// change on the next cold start, so we refuse up front with ErrRootReadOnly
// instead of reporting a successful no-op.
func NewFilesystem(fs afero.Fs, root string) (*Filesystem, error) {
	probe := filepath.Join(root, ".vozsmart-write-probe")
	if err := afero.WriteFile(fs, probe, []byte("probe"), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootReadOnly, root, err)
	}
	_ = fs.Remove(probe)

	return &Filesystem{fs: fs, root: root}, nil
}

func (f *Filesystem) abs(path string) string {
	return filepath.Join(f.root, filepath.FromSlash(path))
}

func (f *Filesystem) Read(path string) ([]byte, bool, error) {
	content, err := afero.ReadFile(f.fs, f.abs(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	return content, true, nil
}

func (f *Filesystem) Write(path string, content []byte) error {
	target := f.abs(path)
	if err := f.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	return afero.WriteFile(f.fs, target, content, 0o644)
}

func (f *Filesystem) Remove(path string) error {
	err := f.fs.Remove(f.abs(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
