package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/quillback/fingerid/internal/fingerid/types"
)

// LastCapture holds the single transient CaptureResult. Each successful
// capture overwrites it; it is persisted under KeyLastCapture so exports
// survive a restart.
type LastCapture struct {
	mu  sync.RWMutex
	cur *types.CaptureResult
	kv  KV
}

func NewLastCapture(kv KV) *LastCapture {
	return &LastCapture{kv: kv}
}

func (c *LastCapture) Set(res types.CaptureResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = &res
}

// Get returns a copy, or nil when no capture has happened yet.
func (c *LastCapture) Get() *types.CaptureResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return nil
	}
	cp := *c.cur
	return &cp
}

func (c *LastCapture) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = nil
}

func (c *LastCapture) Persist(ctx context.Context) error {
	cur := c.Get()
	if cur == nil {
		if err := c.kv.Delete(ctx, KeyLastCapture); err != nil {
			return fmt.Errorf("clear last capture: %w", err)
		}
		return nil
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("marshal last capture: %w", err)
	}
	if err := c.kv.Set(ctx, KeyLastCapture, b); err != nil {
		return fmt.Errorf("persist last capture: %w", err)
	}
	return nil
}

func (c *LastCapture) Reload(ctx context.Context) error {
	b, err := c.kv.Get(ctx, KeyLastCapture)
	if err != nil {
		c.Clear()
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load last capture: %w", err)
	}

	var res types.CaptureResult
	if err := json.Unmarshal(b, &res); err != nil {
		c.Clear()
		return fmt.Errorf("corrupt last-capture blob: %w", err)
	}
	c.Set(res)
	return nil
}
