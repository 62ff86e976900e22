// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"sync"
	"time"
)

var _ Store = &CachedStore{}

// CachedStore is a read-through decorator over a Store with a fixed TTL.
// The record doubles as the dashboard's settings document, so checks hit it
// on every request; caching keeps that cheap while CommitVersion and
// Invalidate keep it correct. Writes always go to the underlying store.
type CachedStore struct {
	inner Store
	ttl   time.Duration

	mu        sync.Mutex
	cached    Record
	fetchedAt time.Time
	valid     bool
}

func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner: inner,
		ttl:   ttl,
	}
}

func (c *CachedStore) Load(ctx context.Context) (Record, error) {
	c.mu.Lock()
	if c.valid && time.Since(c.fetchedAt) < c.ttl {
		record := c.cached
		c.mu.Unlock()
		return record, nil
	}
	c.mu.Unlock()

	record, err := c.inner.Load(ctx)
	if err != nil {
		return Record{}, err
	}

	c.mu.Lock()
	c.cached = record
	c.fetchedAt = time.Now()
	c.valid = true
	c.mu.Unlock()

	return record, nil
}

func (c *CachedStore) UpdatedDocument(ctx context.Context, version string, at time.Time) ([]byte, error) {
	return c.inner.UpdatedDocument(ctx, version, at)
}

func (c *CachedStore) CommitVersion(ctx context.Context, version string, at time.Time) error {
	if err := c.inner.CommitVersion(ctx, version, at); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops the cached record. Callers that mutate the record
// through the underlying store (remote-mode applies commit it as a file)
// must invalidate explicitly.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
