// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub emulates the handful of git-data endpoints the transport uses
// and counts how often each is hit.
type fakeGitHub struct {
	mux        *http.ServeMux
	blobCalls  int
	treeCalls  int
	refUpdates int
	treeEntry  []map[string]any
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{mux: http.NewServeMux()}

	f.mux.HandleFunc("GET /repos/vozzyup/deployment/git/ref/heads/main", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"ref":    "refs/heads/main",
			"object": map[string]any{"sha": "headsha", "type": "commit"},
		})
	})
	f.mux.HandleFunc("GET /repos/vozzyup/deployment/git/commits/headsha", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"sha":  "headsha",
			"tree": map[string]any{"sha": "basetree"},
		})
	})
	f.mux.HandleFunc("POST /repos/vozzyup/deployment/git/blobs", func(w http.ResponseWriter, _ *http.Request) {
		f.blobCalls++
		writeJSON(t, w, map[string]any{"sha": fmt.Sprintf("blob%d", f.blobCalls)})
	})
	f.mux.HandleFunc("POST /repos/vozzyup/deployment/git/trees", func(w http.ResponseWriter, r *http.Request) {
		f.treeCalls++
		var body struct {
			BaseTree string           `json:"base_tree"`
			Tree     []map[string]any `json:"tree"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "basetree", body.BaseTree)
		f.treeEntry = body.Tree
		writeJSON(t, w, map[string]any{"sha": "newtree"})
	})
	f.mux.HandleFunc("POST /repos/vozzyup/deployment/git/commits", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Parents []string `json:"parents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"headsha"}, body.Parents)
		writeJSON(t, w, map[string]any{"sha": "newcommit"})
	})
	f.mux.HandleFunc("PATCH /repos/vozzyup/deployment/git/refs/heads/main", func(w http.ResponseWriter, r *http.Request) {
		f.refUpdates++
		var body struct {
			SHA   string `json:"sha"`
			Force bool   `json:"force"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "newcommit", body.SHA)
		assert.False(t, body.Force, "ref move must not be forced")
		writeJSON(t, w, map[string]any{
			"ref":    "refs/heads/main",
			"object": map[string]any{"sha": body.SHA},
		})
	})

	return f
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestTransport(t *testing.T, handler http.Handler) *GitHub {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGitHub("test-token", "vozzyup/deployment", "main")
	require.NoError(t, err)

	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	g.client.BaseURL = base

	return g
}

func TestCommitBatchSingleRefMove(t *testing.T) {
	fake := newFakeGitHub(t)
	g := newTestTransport(t, fake.mux)

	files := []File{
		{Path: "lib/a.ts", Content: []byte("a")},
		{Path: "lib/b.ts", Content: []byte("b")},
		{Path: "app/c.tsx", Content: []byte("c")},
		{Path: "vozsmart.config.json", Content: []byte("{}")},
	}

	sha, err := g.CommitBatch(context.Background(), files, "chore(update): apply template v1.1.0")
	require.NoError(t, err)

	assert.Equal(t, "newcommit", sha)
	assert.Equal(t, 4, fake.blobCalls, "one blob per file")
	assert.Equal(t, 1, fake.treeCalls, "one tree for the whole batch")
	assert.Equal(t, 1, fake.refUpdates, "exactly one branch-ref update")
	assert.Len(t, fake.treeEntry, 4)
}

func TestCommitBatchRefConflictAborts(t *testing.T) {
	fake := newFakeGitHub(t)
	// a concurrent push moved the head; the non-forced ref update fails
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusUnprocessableEntity)
			writeJSON(t, w, map[string]any{"message": "Update is not a fast forward"})
			return
		}
		fake.mux.ServeHTTP(w, r)
	})
	g := newTestTransport(t, handler)

	_, err := g.CommitBatch(context.Background(), []File{{Path: "lib/a.ts", Content: []byte("a")}}, "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update ref")
}

func TestCommitFileCreateAndUpdate(t *testing.T) {
	mux := http.NewServeMux()
	var updateSHA string
	mux.HandleFunc("GET /repos/vozzyup/deployment/contents/lib/new.ts", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("PUT /repos/vozzyup/deployment/contents/lib/new.ts", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SHA string `json:"sha"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Empty(t, body.SHA, "new file must be created, not updated")
		writeJSON(t, w, map[string]any{"commit": map[string]any{"sha": "c1"}})
	})
	mux.HandleFunc("GET /repos/vozzyup/deployment/contents/lib/old.ts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"type": "file", "sha": "oldsha", "path": "lib/old.ts"})
	})
	mux.HandleFunc("PUT /repos/vozzyup/deployment/contents/lib/old.ts", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SHA string `json:"sha"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		updateSHA = body.SHA
		writeJSON(t, w, map[string]any{"commit": map[string]any{"sha": "c2"}})
	})

	g := newTestTransport(t, mux)

	sha, err := g.CommitFile(context.Background(), "lib/new.ts", []byte("new"), "msg")
	require.NoError(t, err)
	assert.Equal(t, "c1", sha)

	sha, err = g.CommitFile(context.Background(), "lib/old.ts", []byte("old"), "msg")
	require.NoError(t, err)
	assert.Equal(t, "c2", sha)
	assert.Equal(t, "oldsha", updateSHA, "existing file updated against its current revision")
}

func TestCommitBatchTimeoutIsPerCall(t *testing.T) {
	previous := callTimeout
	callTimeout = 150 * time.Millisecond
	t.Cleanup(func() { callTimeout = previous })

	// Every call is individually fast, but the pipeline as a whole takes
	// far longer than one deadline. A batch must still land.
	fake := newFakeGitHub(t)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		fake.mux.ServeHTTP(w, r)
	})
	g := newTestTransport(t, slow)

	files := []File{
		{Path: "lib/a.ts", Content: []byte("a")},
		{Path: "lib/b.ts", Content: []byte("b")},
		{Path: "lib/c.ts", Content: []byte("c")},
		{Path: "lib/d.ts", Content: []byte("d")},
	}

	sha, err := g.CommitBatch(context.Background(), files, "msg")
	require.NoError(t, err)
	assert.Equal(t, "newcommit", sha)
}

func TestReadFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/vozzyup/deployment/contents/vozsmart.config.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"type":     "file",
			"path":     "vozsmart.config.json",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(`{"installedVersion":"1.0.0"}`)),
		})
	})
	mux.HandleFunc("GET /repos/vozzyup/deployment/contents/missing.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	g := newTestTransport(t, mux)

	content, exists, err := g.ReadFile(context.Background(), "vozsmart.config.json")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.JSONEq(t, `{"installedVersion":"1.0.0"}`, string(content))

	_, exists, err = g.ReadFile(context.Background(), "missing.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewGitHubValidation(t *testing.T) {
	_, err := NewGitHub("token", "not-owner-name", "main")
	assert.Error(t, err)

	_, err = NewGitHub("", "owner/name", "main")
	assert.Error(t, err)
}
