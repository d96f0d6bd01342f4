// Package device provides the Device Registry for Orii Core.
//
// The registry is the central catalogue of every device the hub manages.
// Devices are plugins: each one declares a static Spec (name, type, readme,
// selection schema, warm-up window, persistence key) and owns a live
// present map guarded by its own lock. The registry constructs plugins
// from an ordered factory list, assigns dense integer ids starting at 0,
// seeds each present map from the param store, and assembles the aggregate
// state document the decision service reasons over.
//
// # Key Types
//
//   - Plugin: the capability surface every device implements
//   - Base: embeddable implementation of the mutable half of Plugin
//   - Spec: a device's static identity and parameter schema
//   - Descriptor / State: the wire form of one device and of the aggregate
//   - Action: a device id plus a full replacement present map
//
// # Lifecycle
//
//	reg := device.NewRegistry(paramStore, profile, device.WithLogger(log))
//	if err := reg.Build(ctx, devices.Factories(...)); err != nil {
//	    return err
//	}
//	defer reg.Close()
//
// Build runs each factory in order; a factory that fails is skipped and
// later devices shift down so ids stay contiguous. Persisted parameters
// are applied before a device's background runner starts.
//
// # Warm-up
//
// A device with a non-zero WarmUp (or a ReadyReporter that is not yet
// reporting ready) stays in the warming-up state: the scheduler skips its
// trigger flag and the reconciler rejects actions against it. Readiness is
// latched on first observation and never revoked.
//
// # Thread Safety
//
// All public methods are safe for concurrent use after Build returns.
// Present maps are snapshotted and replaced under each device's own lock,
// so readers never observe a half-written parameter map.
package device
