package devices

import (
	"context"

	"github.com/orii-home/orii-core/internal/device"
)

// Door is a contact sensor fed by an external event source (GPIO shim,
// MQTT bridge, test harness). Every edge updates the present map and
// raises the trigger so the decision service hears about comings and
// goings.
type Door struct {
	*device.Base
	name   string
	events <-chan bool
}

// NewDoor creates a door sensor consuming open/closed edges from events.
func NewDoor(name string, events <-chan bool) *Door {
	return &Door{
		Base: device.NewBase(map[string]any{
			"open": false,
		}),
		name:   name,
		events: events,
	}
}

func (d *Door) Spec() device.Spec {
	return device.Spec{
		Name:   d.name,
		Type:   "door",
		Readme: "A door contact. open is true while the door stands open. Read-only; it reports every open and close.",
	}
}

// Run consumes contact edges until the context is cancelled.
func (d *Door) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case open, ok := <-d.events:
			if !ok {
				return
			}
			d.Update(func(present map[string]any) {
				present["open"] = open
			})
			d.RaiseTrigger()
		}
	}
}
