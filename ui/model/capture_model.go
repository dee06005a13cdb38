package model

import (
	"sync"
	"sync/atomic"
)

// CaptureModel tracks whether streaming is enabled and the last start or
// fatal error shown to the user. The zero value is disabled and usable.
// The fatal handler reports from the capture goroutine, so access is
// synchronized.
type CaptureModel struct {
	enabled atomic.Bool

	mu      sync.Mutex
	lastErr error
}

// Enabled reports whether streaming is currently enabled.
func (m *CaptureModel) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled.Load()
}

// SetEnabled stores the enabled flag. Enabling clears the last error.
func (m *CaptureModel) SetEnabled(b bool) {
	if m == nil {
		return
	}
	if m.enabled.Swap(b) == b {
		return
	}
	if b {
		m.SetError(nil)
	}
}

// SetError records err; nil clears it.
func (m *CaptureModel) SetError(err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Err returns the last recorded error.
func (m *CaptureModel) Err() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
