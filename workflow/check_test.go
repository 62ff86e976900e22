// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VozzyUp/vozzysmartoficial/manifest"
	"github.com/VozzyUp/vozzysmartoficial/state"
)

var testSource = manifest.Source{RepositoryID: "VozzyUp/vozsmart-template", Branch: "main"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckExecute(t *testing.T) {
	errWrong := fmt.Errorf("something went wrong")

	record := state.Record{
		InstalledVersion: "1.0.0",
		TemplateSource:   testSource,
	}

	type mocks struct {
		stateStore *MockStore
		fetcher    *MockFetcher
	}
	tests := []struct {
		name       string
		setup      func(mocks)
		wantErr    assert.ErrorAssertionFunc
		wantResult CheckResult
	}{
		{
			name: "state record missing",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(state.Record{}, state.ErrNotConfigured)
			},
			wantErr: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.ErrorIs(t, err, state.ErrNotConfigured)
			},
		},
		{
			name: "fetch fails but installed version is still reported",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(record, nil)
				mocks.fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(manifest.Manifest{}, manifest.ErrManifestFetchFailed)
			},
			wantErr: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.ErrorIs(t, err, manifest.ErrManifestFetchFailed)
			},
			wantResult: CheckResult{CurrentVersion: "1.0.0"},
		},
		{
			name: "protected manifest beats update available",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(record, nil)
				mocks.fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(manifest.Manifest{
					Version:       "1.1.0",
					FilesToUpdate: []string{"lib/foo.ts", ".env"},
				}, nil)
			},
			wantErr: func(t assert.TestingT, err error, i ...interface{}) bool {
				var protected *ProtectedFilesError
				if !assert.ErrorAs(t, err, &protected) {
					return false
				}
				return assert.Equal(t, []string{".env"}, protected.Blocked)
			},
			wantResult: CheckResult{CurrentVersion: "1.0.0"},
		},
		{
			name: "up to date",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(record, nil)
				mocks.fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(manifest.Manifest{
					Version: "1.0.0",
				}, nil)
			},
			wantErr: assert.NoError,
			wantResult: CheckResult{
				CurrentVersion: "1.0.0",
				LatestVersion:  "1.0.0",
				HasUpdate:      false,
			},
		},
		{
			name: "update available",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(record, nil)
				mocks.fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(manifest.Manifest{
					Version:           "1.1.0",
					Changelog:         []string{"faster inbox"},
					FilesToUpdate:     []string{"lib/foo.ts"},
					RequiresMigration: true,
					BreakingChanges:   []string{"renamed env var"},
				}, nil)
			},
			wantErr: assert.NoError,
			wantResult: CheckResult{
				CurrentVersion:    "1.0.0",
				LatestVersion:     "1.1.0",
				HasUpdate:         true,
				Changelog:         []string{"faster inbox"},
				FilesToUpdate:     []string{"lib/foo.ts"},
				RequiresMigration: true,
				BreakingChanges:   []string{"renamed env var"},
			},
		},
		{
			name: "lexically older version still counts as update",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(record, nil)
				mocks.fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(manifest.Manifest{
					Version: "0.9.0",
				}, nil)
			},
			wantErr: assert.NoError,
			wantResult: CheckResult{
				CurrentVersion: "1.0.0",
				LatestVersion:  "0.9.0",
				HasUpdate:      true,
			},
		},
		{
			name: "configured patterns block too",
			setup: func(mocks mocks) {
				configured := record
				configured.ProtectedPatterns = []string{"assets/**"}
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(configured, nil)
				mocks.fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(manifest.Manifest{
					Version:       "1.1.0",
					FilesToUpdate: []string{"assets/logo.png"},
				}, nil)
			},
			wantErr: func(t assert.TestingT, err error, i ...interface{}) bool {
				var protected *ProtectedFilesError
				return assert.ErrorAs(t, err, &protected)
			},
			wantResult: CheckResult{CurrentVersion: "1.0.0"},
		},
		{
			name: "state load fails",
			setup: func(mocks mocks) {
				mocks.stateStore.EXPECT().Load(gomock.Any()).Return(state.Record{}, errWrong)
			},
			wantErr: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.Equal(t, errWrong, err)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			mocks := mocks{
				stateStore: NewMockStore(ctrl),
				fetcher:    NewMockFetcher(ctrl),
			}
			test.setup(mocks)

			check := NewCheck(CheckConfig{
				StateStore: mocks.stateStore,
				Fetcher:    mocks.fetcher,
				Log:        discardLogger(),
			})

			err := check.Execute(context.Background())
			test.wantErr(t, err)
			assert.Equal(t, test.wantResult, check.Result)
		})
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)

	stateStore := NewMockStore(ctrl)
	fetcher := NewMockFetcher(ctrl)

	record := state.Record{InstalledVersion: "1.0.0", TemplateSource: testSource}
	m := manifest.Manifest{Version: "1.1.0", FilesToUpdate: []string{"lib/foo.ts"}}

	stateStore.EXPECT().Load(gomock.Any()).Return(record, nil).Times(2)
	fetcher.EXPECT().Fetch(gomock.Any(), testSource).Return(m, nil).Times(2)

	first := NewCheck(CheckConfig{StateStore: stateStore, Fetcher: fetcher, Log: discardLogger()})
	require.NoError(t, first.Execute(context.Background()))

	second := NewCheck(CheckConfig{StateStore: stateStore, Fetcher: fetcher, Log: discardLogger()})
	require.NoError(t, second.Execute(context.Background()))

	assert.Equal(t, first.Result, second.Result)
}
