// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const triggerTimeout = 10 * time.Second

// Trigger asks the hosting platform to redeploy after an update has landed.
// Triggers are best effort: the orchestrator records whether one fired but
// never fails an apply over it.
type Trigger interface {
	Trigger(ctx context.Context) error
}

var (
	_ Trigger = &HookTrigger{}
	_ Trigger = NopTrigger{}
)

// HookTrigger POSTs to a deploy-hook URL. Vercel deploy hooks and plain
// webhooks share this shape; only the URL differs.
type HookTrigger struct {
	client *http.Client
	url    string
	name   string
}

func NewVercelHook(url string) *HookTrigger {
	return newHook(url, "vercel")
}

func NewWebhook(url string) *HookTrigger {
	return newHook(url, "webhook")
}

func newHook(url, name string) *HookTrigger {
	return &HookTrigger{
		client: &http.Client{Timeout: triggerTimeout},
		url:    url,
		name:   name,
	}
}

func (h *HookTrigger) Trigger(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s deploy hook: %w", h.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s deploy hook: status %d", h.name, resp.StatusCode)
	}

	return nil
}

// NopTrigger is used when no redeploy mechanism is configured.
type NopTrigger struct{}

func (NopTrigger) Trigger(context.Context) error {
	return nil
}
