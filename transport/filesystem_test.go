// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemReadWrite(t *testing.T) {
	fs, err := NewFilesystem(afero.NewMemMapFs(), "/app")
	require.NoError(t, err)

	_, exists, err := fs.Read("lib/foo.ts")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write("lib/foo.ts", []byte("export {}")))

	content, exists, err := fs.Read("lib/foo.ts")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []byte("export {}"), content)
}

func TestFilesystemWriteCreatesParents(t *testing.T) {
	fs, err := NewFilesystem(afero.NewMemMapFs(), "/app")
	require.NoError(t, err)

	require.NoError(t, fs.Write("a/b/c/deep.ts", []byte("x")))

	_, exists, err := fs.Read("a/b/c/deep.ts")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFilesystemRemoveMissingIsNoop(t *testing.T) {
	fs, err := NewFilesystem(afero.NewMemMapFs(), "/app")
	require.NoError(t, err)

	assert.NoError(t, fs.Remove("never/existed.ts"))
}

func TestFilesystemReadOnlyRoot(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/app", 0o755))

	_, err := NewFilesystem(afero.NewReadOnlyFs(base), "/app")
	assert.ErrorIs(t, err, ErrRootReadOnly)
}
