package device

import (
	"sync"
	"sync/atomic"
)

// Base carries the mutable half of a plugin: the mutex-guarded present map
// and the trigger flag. Embed it and implement Spec() to get a complete
// Plugin.
type Base struct {
	mu      sync.RWMutex
	present map[string]any
	trigger atomic.Bool
}

// NewBase seeds the live present map. The map is deep-copied so the caller
// can keep its literal.
func NewBase(present map[string]any) *Base {
	return &Base{present: CopyMap(present)}
}

// Present returns a deep-copied snapshot of the live parameter map.
func (b *Base) Present() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return CopyMap(b.present)
}

// SetPresent replaces the live parameter map wholesale.
func (b *Base) SetPresent(p map[string]any) {
	clone := CopyMap(p)
	b.mu.Lock()
	b.present = clone
	b.mu.Unlock()
}

// Update mutates the live map under the write lock. Plugins use this for
// internal state changes (sensor readings, switch edges) so a concurrent
// Present never observes a half-written map.
func (b *Base) Update(fn func(present map[string]any)) {
	b.mu.Lock()
	fn(b.present)
	b.mu.Unlock()
}

// RaiseTrigger marks the device as wanting a decision cycle. Idempotent;
// repeated raises before the scheduler collects still produce one report.
func (b *Base) RaiseTrigger() { b.trigger.Store(true) }

// TriggerPending reports whether the trigger flag is raised.
func (b *Base) TriggerPending() bool { return b.trigger.Load() }

// ClearTrigger lowers the trigger flag.
func (b *Base) ClearTrigger() { b.trigger.Store(false) }
