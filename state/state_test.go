// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VozzyUp/vozzysmartoficial/manifest"
)

const recordDoc = `{
  "installedVersion": "1.0.0",
  "lastUpdateAt": null,
  "templateSource": {"repositoryId": "VozzyUp/vozsmart-template", "branch": "main"},
  "protectedPatterns": ["assets/**"],
  "dashboardTheme": "dark"
}`

func TestLoadMissing(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/app")

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/"+RecordFile, []byte(recordDoc), 0o644))

	store := NewFileStore(fs, "/app")
	record, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", record.InstalledVersion)
	assert.Nil(t, record.LastUpdateAt)
	assert.Equal(t, manifest.Source{RepositoryID: "VozzyUp/vozsmart-template", Branch: "main"}, record.TemplateSource)
	assert.Equal(t, []string{"assets/**"}, record.ProtectedPatterns)
}

func TestCommitVersionMutatesOnlyVersionFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/"+RecordFile, []byte(recordDoc), 0o644))

	store := NewFileStore(fs, "/app")
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CommitVersion(context.Background(), "1.1.0", at))

	record, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", record.InstalledVersion)
	require.NotNil(t, record.LastUpdateAt)
	assert.Equal(t, at, record.LastUpdateAt.UTC())
	// caller-owned fields untouched
	assert.Equal(t, []string{"assets/**"}, record.ProtectedPatterns)
	assert.Equal(t, "main", record.TemplateSource.Branch)

	// fields the Record type does not even know about survive the rewrite
	raw, err := afero.ReadFile(fs, "/app/"+RecordFile)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, `"dark"`, string(doc["dashboardTheme"]))
}

func TestCommitVersionMissingRecord(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/app")

	err := store.CommitVersion(context.Background(), "1.1.0", time.Now())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRoundTripIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/"+RecordFile, []byte(recordDoc), 0o644))

	store := NewFileStore(fs, "/app")
	first, err := store.Load(context.Background())
	require.NoError(t, err)
	second, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCachedStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/"+RecordFile, []byte(recordDoc), 0o644))

	cached := NewCachedStore(NewFileStore(fs, "/app"), time.Minute)

	record, err := cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", record.InstalledVersion)

	// the cached copy masks out-of-band edits until invalidated
	edited := []byte(`{"installedVersion": "9.9.9", "lastUpdateAt": null, "templateSource": {"repositoryId": "x/y", "branch": "main"}, "protectedPatterns": []}`)
	require.NoError(t, afero.WriteFile(fs, "/app/"+RecordFile, edited, 0o644))

	record, err = cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", record.InstalledVersion)

	cached.Invalidate()
	record, err = cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", record.InstalledVersion)
}

func TestCachedStoreCommitInvalidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/"+RecordFile, []byte(recordDoc), 0o644))

	cached := NewCachedStore(NewFileStore(fs, "/app"), time.Minute)

	_, err := cached.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, cached.CommitVersion(context.Background(), "1.1.0", time.Now()))

	record, err := cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", record.InstalledVersion)
}
