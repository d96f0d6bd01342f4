package mqtt

import "fmt"

// Topic prefixes for the Orii MQTT namespace.
//
// Orii uses a shallow hierarchy: orii/{concern}[/{id}]. The inbox and
// notify topics the virtual devices ride on are configurable and default
// to orii/inbox and orii/notify.
const (
	// TopicPrefix is the base for all Orii topics.
	TopicPrefix = "orii"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "orii/system"
)

// Topics provides builders for Orii MQTT topics. Using these helpers keeps
// topic naming consistent across the codebase.
type Topics struct{}

// SystemStatus returns the hub online/offline status topic.
//
// Example: orii/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// DeviceState returns the canonical state topic for one device. The hub
// publishes here after the reconciler applies an action.
//
// Example: orii/device/3/state
func (Topics) DeviceState(id int) string {
	return fmt.Sprintf("%s/device/%d/state", TopicPrefix, id)
}

// DoorEvents returns the topic a door contact publishes open/closed
// edges on.
//
// Example: orii/door
func (Topics) DoorEvents() string {
	return fmt.Sprintf("%s/door", TopicPrefix)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: orii/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefix)
}

// AllTopics returns a pattern matching all Orii topics. Receives ALL
// traffic; use with caution.
//
// Pattern: orii/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
