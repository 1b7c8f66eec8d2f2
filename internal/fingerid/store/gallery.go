package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillback/fingerid/internal/fingerid/types"
)

// Gallery owns the enrolled Identity records. Insertion order is preserved
// for display; it carries no matching semantics. The full gallery is
// persisted as one JSON blob under KeyGallery.
type Gallery struct {
	mu      sync.RWMutex
	records []types.Identity
	kv      KV
}

func NewGallery(kv KV) *Gallery {
	return &Gallery{kv: kv}
}

// Enroll appends a new record with a freshly generated id. Duplicate display
// names are permitted — every enrollment is a distinct identity.
func (g *Gallery) Enroll(displayName, template string) types.Identity {
	rec := types.Identity{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Template:    template,
		EnrolledAt:  time.Now().UTC(),
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append(g.records, rec)
	return rec
}

// Remove deletes the record with the given id. Absent ids are a no-op.
func (g *Gallery) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.records {
		if g.records[i].ID == id {
			g.records = append(g.records[:i], g.records[i+1:]...)
			return
		}
	}
}

func (g *Gallery) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = nil
}

// Replace swaps the whole gallery. Used by the import path, which is a
// destructive overwrite rather than a merge.
func (g *Gallery) Replace(records []types.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append([]types.Identity(nil), records...)
}

// List returns a copied snapshot in insertion order.
func (g *Gallery) List() []types.Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]types.Identity(nil), g.records...)
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Persist writes the gallery to the blob store.
func (g *Gallery) Persist(ctx context.Context) error {
	snapshot := g.List()
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal gallery: %w", err)
	}
	if err := g.kv.Set(ctx, KeyGallery, b); err != nil {
		return fmt.Errorf("persist gallery: %w", err)
	}
	return nil
}

// Reload replaces the in-memory gallery with the persisted blob. A missing
// key yields an empty gallery and no error; a corrupt blob yields an empty
// gallery plus the storage error so the caller can surface it.
func (g *Gallery) Reload(ctx context.Context) error {
	b, err := g.kv.Get(ctx, KeyGallery)
	if err != nil {
		g.Replace(nil)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load gallery: %w", err)
	}

	var records []types.Identity
	if err := json.Unmarshal(b, &records); err != nil {
		g.Replace(nil)
		return fmt.Errorf("corrupt gallery blob: %w", err)
	}
	g.Replace(records)
	return nil
}
