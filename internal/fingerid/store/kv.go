package store

import (
	"context"
	"errors"
)

// Fixed keys for the persisted state layout.
const (
	KeyGallery     = "fingerid.users"
	KeyLastCapture = "fingerid.last_capture"
	KeyAudit       = "fingerid.audit"
)

// ErrNotFound keeps missing-key handling consistent across the in-memory
// and sqlite implementations.
var ErrNotFound = errors.New("key not found")

// KV is the durable blob store the controller persists through. The
// in-memory state is authoritative; a failed write degrades to
// in-memory-only operation and is surfaced as a warning, never a crash.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
