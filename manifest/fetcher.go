// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ManifestPath is the well-known location of the manifest inside the
// template repository.
const ManifestPath = "template-manifest.json"

const fetchTimeout = 10 * time.Second

var (
	ErrManifestUnavailable = errors.New("manifest not found")
	ErrManifestFetchFailed = errors.New("manifest fetch failed")
	ErrGatewayTimeout      = errors.New("template source timed out")
)

// Source identifies where manifests and template files are pulled from.
type Source struct {
	// RepositoryID is the owner/name of the template repository.
	RepositoryID string `json:"repositoryId"`
	Branch       string `json:"branch"`
}

// RawURL returns the CDN URL of a file at the source's branch head.
func (s Source) RawURL(path string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", s.RepositoryID, s.Branch, path)
}

// Fetcher retrieves the remote version manifest for a template source.
type Fetcher interface {
	Fetch(ctx context.Context, source Source) (Manifest, error)
}

var _ Fetcher = &HTTPFetcher{}

// HTTPFetcher fetches the manifest over plain HTTP. Every request carries
// no-store cache directives and a cache-busting query parameter: the raw
// file sits behind a CDN and the manifest must always reflect the latest
// published state.
type HTTPFetcher struct {
	client *http.Client

	// baseURL overrides the source's raw URL root, for tests.
	baseURL string
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, source Source) (Manifest, error) {
	target := source.RawURL(ManifestPath)
	if f.baseURL != "" {
		target = f.baseURL + "/" + ManifestPath
	}

	target, err := withCacheBuster(target)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrManifestFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrManifestFetchFailed, err)
	}
	req.Header.Set("Cache-Control", "no-store, no-cache, max-age=0")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Manifest{}, fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
		}
		return Manifest{}, fmt.Errorf("%w: %v", ErrManifestFetchFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Manifest{}, fmt.Errorf("%w at %s", ErrManifestUnavailable, source.RepositoryID)
	case resp.StatusCode != http.StatusOK:
		return Manifest{}, fmt.Errorf("%w: status %d", ErrManifestFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrManifestFetchFailed, err)
	}

	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: invalid manifest: %v", ErrManifestFetchFailed, err)
	}
	if m.Version == "" {
		return Manifest{}, fmt.Errorf("%w: manifest has no version", ErrManifestFetchFailed)
	}

	return m, nil
}

func withCacheBuster(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(time.Now().UnixNano(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
