package device

import "errors"

// Domain errors for the device package, checked with errors.Is().
var (
	// ErrDeviceNotFound is returned when a device id does not exist in the
	// registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrNotReady is returned when an action targets a device still warming
	// up.
	ErrNotReady = errors.New("device: not ready")

	// ErrShapeMismatch is returned when an incoming param map does not have
	// the exact key structure of the device's present map.
	ErrShapeMismatch = errors.New("device: param shape mismatch")

	// ErrNotBuilt is returned when the registry is used before Build has
	// completed.
	ErrNotBuilt = errors.New("device: registry not built")
)
