package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillback/fingerid/internal/fingerid/types"
)

// Export snapshots the full data set into the portable exchange document.
func (c *Controller) Export() types.ExchangeDocument {
	return types.ExchangeDocument{
		Users:       c.gallery.List(),
		LastCapture: c.last.Get(),
		ExportDate:  time.Now().UTC().Format(time.RFC3339),
	}
}

// exchangeProbe validates the document shape before anything is touched.
// Field access is never optimistic: users must be present and must be an
// array, or the whole import is rejected.
type exchangeProbe struct {
	Users       json.RawMessage      `json:"users"`
	LastCapture *types.CaptureResult `json:"lastCapture"`
}

// Import replaces the current gallery and, when present, the last-capture
// state with the document contents. It is a destructive overwrite, not a
// merge. On any validation failure the existing state is left untouched.
// Returns the number of imported records and a storage warning, if any.
func (c *Controller) Import(ctx context.Context, raw []byte) (int, string, error) {
	var probe exchangeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(probe.Users) == 0 || string(probe.Users) == "null" {
		return 0, "", fmt.Errorf("%w: missing users field", ErrInvalidFormat)
	}

	var users []types.Identity
	if err := json.Unmarshal(probe.Users, &users); err != nil {
		return 0, "", fmt.Errorf("%w: users is not an array of records", ErrInvalidFormat)
	}

	c.gallery.Replace(users)
	persists := []func(context.Context) error{c.gallery.Persist}
	if probe.LastCapture != nil {
		c.last.Set(*probe.LastCapture)
		persists = append(persists, c.last.Persist)
	}
	c.metrics.SetGallerySize(len(users))

	warn := c.persistAll(ctx, persists...)
	return len(users), warn, nil
}
