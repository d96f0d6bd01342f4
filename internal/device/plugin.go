package device

import "context"

// Plugin is the capability surface every device implements. The registry
// assigns ids and owns the aggregate; the plugin owns its live present map
// and its trigger flag. Implementations are expected to embed Base, which
// provides everything except Spec.
type Plugin interface {
	// Spec returns the device's static identity. Called once at build time.
	Spec() Spec

	// Present returns a deep-copied snapshot of the live parameter map.
	Present() map[string]any

	// SetPresent replaces the live parameter map wholesale. The caller has
	// already validated the shape.
	SetPresent(map[string]any)

	// TriggerPending reports whether the device has raised its trigger flag
	// since the last ClearTrigger.
	TriggerPending() bool

	// ClearTrigger lowers the trigger flag.
	ClearTrigger()
}

// Runner is implemented by plugins that need a background loop, such as
// sensors that sample hardware or subscribers that watch a broker. The
// registry starts each runner in its own goroutine after the persisted
// parameters have been applied, so a runner never observes factory-default
// state that a store seed would have replaced.
type Runner interface {
	Run(ctx context.Context)
}

// ReadyReporter is implemented by plugins whose readiness depends on more
// than elapsed time. The registry keeps the device in the warming-up state
// until both the warm-up window has passed and HardwareReady returns true.
type ReadyReporter interface {
	HardwareReady() bool
}

// Factory constructs one plugin. Factories are registered in a fixed order
// and that order defines device ids: the first successfully constructed
// plugin is id 0, the next id 1, and so on. A factory returning an error is
// skipped and later devices shift down to keep ids contiguous.
type Factory struct {
	Name string
	New  func() (Plugin, error)
}
