// Package service holds the enrollment/verification controller: the logic
// that turns a fresh capture into either a new identity record or a 1:N
// identification decision, plus the audit and import/export paths around it.
package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/quillback/fingerid/internal/device"
	"github.com/quillback/fingerid/internal/fingerid/store"
	"github.com/quillback/fingerid/internal/fingerid/types"
	"github.com/quillback/fingerid/internal/metrics"
)

// CaptureDevice is what the controller needs from the device client.
type CaptureDevice interface {
	Capture(ctx context.Context, cfg device.CaptureConfig) (types.CaptureResult, error)
	Compare(ctx context.Context, probe, candidate string) (int, error)
}

type Dependencies struct {
	Logger  *log.Logger
	Device  CaptureDevice
	Gallery *store.Gallery
	Audit   *store.AuditLog
	Last    *store.LastCapture
	Capture device.CaptureConfig
	Metrics *metrics.Metrics // nil is fine
}

type Controller struct {
	logger  *log.Logger
	device  CaptureDevice
	gallery *store.Gallery
	audit   *store.AuditLog
	last    *store.LastCapture
	capture device.CaptureConfig
	metrics *metrics.Metrics
}

func NewController(d Dependencies) *Controller {
	cfg := d.Capture
	if cfg == (device.CaptureConfig{}) {
		cfg = device.DefaultCaptureConfig()
	}
	return &Controller{
		logger:  d.Logger,
		device:  d.Device,
		gallery: d.Gallery,
		audit:   d.Audit,
		last:    d.Last,
		capture: cfg,
		metrics: d.Metrics,
	}
}

// EnrollResult is returned from a successful registration flow.
type EnrollResult struct {
	Identity types.Identity
	Capture  types.CaptureResult

	// StorageWarning is set when the durable write failed. The in-memory
	// mutation still took effect; durable and in-memory state diverge until
	// the next successful write or reload.
	StorageWarning string
}

// VerifyResult is returned from a completed identification scan.
type VerifyResult struct {
	Outcome        types.MatchOutcome
	Capture        types.CaptureResult
	StorageWarning string
}

// Enroll runs the registration flow: capture, then append a new identity
// record carrying the captured template.
func (c *Controller) Enroll(ctx context.Context, displayName string) (EnrollResult, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return EnrollResult{}, ErrEmptyName
	}

	capture, err := c.captureOnce(ctx)
	if err != nil {
		return EnrollResult{}, err
	}

	rec := c.gallery.Enroll(displayName, capture.Template)
	c.metrics.IncrementEnrollments()
	c.metrics.SetGallerySize(c.gallery.Len())

	warn := c.persistAll(ctx, c.gallery.Persist, c.last.Persist)
	return EnrollResult{Identity: rec, Capture: capture, StorageWarning: warn}, nil
}

// Verify runs the identification flow. The empty-gallery guard comes before
// the capture so an operator mistake does not cost a device round trip.
func (c *Controller) Verify(ctx context.Context) (VerifyResult, error) {
	if c.gallery.Len() == 0 {
		return VerifyResult{}, ErrEmptyGallery
	}

	capture, err := c.captureOnce(ctx)
	if err != nil {
		return VerifyResult{}, err
	}

	outcome, err := Identify(ctx, c.device, capture.Template, c.gallery.List())
	if err != nil {
		c.metrics.ObserveVerification("error")
		return VerifyResult{}, err
	}

	entry := types.AuditEntry{
		Timestamp: time.Now().UTC(),
		Score:     outcome.Score,
		Success:   outcome.Accepted,
	}
	if outcome.Accepted {
		entry.SubjectName = outcome.Matched.DisplayName
		c.metrics.ObserveVerification("match")
	} else {
		c.metrics.ObserveVerification("no_match")
	}
	c.audit.Record(entry)

	warn := c.persistAll(ctx, c.audit.Persist, c.last.Persist)
	return VerifyResult{Outcome: outcome, Capture: capture, StorageWarning: warn}, nil
}

// Remove deletes an identity. Absent ids are a no-op, not an error.
func (c *Controller) Remove(ctx context.Context, id string) string {
	c.gallery.Remove(id)
	c.metrics.SetGallerySize(c.gallery.Len())
	return c.persistAll(ctx, c.gallery.Persist)
}

// Clear empties the gallery.
func (c *Controller) Clear(ctx context.Context) string {
	c.gallery.Clear()
	c.metrics.SetGallerySize(0)
	return c.persistAll(ctx, c.gallery.Persist)
}

func (c *Controller) Identities() []types.Identity { return c.gallery.List() }

func (c *Controller) AuditEntries() []types.AuditEntry { return c.audit.List() }

func (c *Controller) captureOnce(ctx context.Context) (types.CaptureResult, error) {
	capture, err := c.device.Capture(ctx, c.capture)
	if err != nil {
		c.metrics.ObserveCapture(captureResultLabel(err))
		return types.CaptureResult{}, err
	}
	c.metrics.ObserveCapture("ok")
	c.last.Set(capture)
	return capture, nil
}

// persistAll runs the given persist funcs and folds any failures into a
// warning string. Durable-write failures never roll back or block the
// in-memory mutation (in-memory correctness over hard durability).
func (c *Controller) persistAll(ctx context.Context, fns ...func(context.Context) error) string {
	var problems []string
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			c.logger.Printf("storage warning: %v", err)
			problems = append(problems, err.Error())
		}
	}
	return strings.Join(problems, "; ")
}

func captureResultLabel(err error) string {
	switch err.(type) {
	case *device.DeviceError:
		return "device_error"
	case *device.TransportError:
		return "transport_error"
	default:
		return "error"
	}
}
