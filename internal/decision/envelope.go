package decision

import "github.com/orii-home/orii-core/internal/device"

// Report statuses sent to the decision service.
const (
	// StatusInit accompanies the first report after startup. The device
	// list carries every device so the service can ground itself.
	StatusInit = "init"

	// StatusTrigger accompanies routine reports. The device list carries
	// only the devices whose trigger flag fired this cycle.
	StatusTrigger = "trigger"
)

// Request is the envelope posted to the decision service: a status marker
// plus the reporting devices' descriptors.
type Request struct {
	Status  string              `json:"status"`
	Devices []device.Descriptor `json:"devices"`
}

// Response is the envelope the service replies with. An empty action list
// is a valid "nothing to do" answer; a reply without the actions field is
// rejected as malformed.
type Response struct {
	Actions []device.Action `json:"actions"`
}
