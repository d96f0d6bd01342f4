package automation

import "errors"

// Domain errors for the automation package, checked with errors.Is().
var (
	// ErrNotStarted is returned when the orchestrator is used before Start.
	ErrNotStarted = errors.New("automation: not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("automation: already started")
)
