package decision

import "errors"

// Domain errors for the decision package, checked with errors.Is().
var (
	// ErrUnavailable is returned when the decision service cannot be
	// reached after all retries.
	ErrUnavailable = errors.New("decision: service unavailable")

	// ErrBadResponse is returned when the service replies with something
	// that cannot be parsed as an action list.
	ErrBadResponse = errors.New("decision: malformed response")

	// ErrDisabled is returned by operations that require a live service
	// while the client runs in stub mode.
	ErrDisabled = errors.New("decision: client disabled")
)
