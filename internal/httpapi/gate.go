package httpapi

import "sync"

// captureGate admits one capture-triggering operation at a time. It is the
// HTTP equivalent of disabling the capture button while a scan is in flight.
type captureGate struct {
	mu sync.Mutex
}

func (g *captureGate) tryAcquire() bool { return g.mu.TryLock() }

func (g *captureGate) release() { g.mu.Unlock() }
