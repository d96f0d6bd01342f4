package mqtt

import "errors"

// Domain errors for the MQTT wrapper.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, mqtt.ErrNotConnected) {
//	    // skip the publish, the hub keeps cycling without the broker
//	}
var (
	// ErrNotConnected is returned for operations attempted while the
	// broker link is down. Door events and announcements stop flowing but
	// nothing else in the hub depends on the broker.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial broker connection
	// cannot be established.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish does not complete,
	// including oversized payloads and broker timeouts.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscription cannot be
	// registered with the broker.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed is returned when a topic cannot be released.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for QoS levels outside 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
