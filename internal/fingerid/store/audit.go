package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/quillback/fingerid/internal/fingerid/types"
)

// MaxAuditEntries bounds the audit log. Eviction is FIFO — entries are never
// re-accessed, so there is nothing to gain from recency tracking.
const MaxAuditEntries = 50

// AuditLog is the append-only record of verification attempts, persisted as
// one JSON blob under KeyAudit, oldest entry first.
type AuditLog struct {
	mu      sync.RWMutex
	entries []types.AuditEntry
	kv      KV
}

func NewAuditLog(kv KV) *AuditLog {
	return &AuditLog{kv: kv}
}

// Record appends an entry, evicting from the front once the bound is hit.
func (l *AuditLog) Record(e types.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if n := len(l.entries); n > MaxAuditEntries {
		l.entries = append([]types.AuditEntry(nil), l.entries[n-MaxAuditEntries:]...)
	}
}

// List returns a copied snapshot, oldest first.
func (l *AuditLog) List() []types.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.AuditEntry(nil), l.entries...)
}

func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *AuditLog) replace(entries []types.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
}

func (l *AuditLog) Persist(ctx context.Context) error {
	b, err := json.Marshal(l.List())
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}
	if err := l.kv.Set(ctx, KeyAudit, b); err != nil {
		return fmt.Errorf("persist audit log: %w", err)
	}
	return nil
}

// Reload replaces the in-memory log with the persisted blob, re-applying the
// bound in case the blob predates a smaller limit. Missing key means an
// empty log; a corrupt blob means an empty log plus the storage error.
func (l *AuditLog) Reload(ctx context.Context) error {
	b, err := l.kv.Get(ctx, KeyAudit)
	if err != nil {
		l.replace(nil)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load audit log: %w", err)
	}

	var entries []types.AuditEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		l.replace(nil)
		return fmt.Errorf("corrupt audit blob: %w", err)
	}
	if n := len(entries); n > MaxAuditEntries {
		entries = entries[n-MaxAuditEntries:]
	}
	l.replace(entries)
	return nil
}
