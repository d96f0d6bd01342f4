package devices

import (
	"encoding/json"
	"time"

	"github.com/orii-home/orii-core/internal/device"
)

// Publisher is the MQTT surface the notify device needs. *mqtt.Client
// satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// NotifyLogger is the logging surface the notify device needs.
type NotifyLogger interface {
	Warn(msg string, args ...any)
}

// Notify is a virtual announcer. The decision service writes a message
// into its param and the device publishes it to the household broadcast
// topic. An applied empty message clears the slate without announcing.
type Notify struct {
	*device.Base
	publisher Publisher
	topic     string
	qos       byte
	logger    NotifyLogger
}

// NewNotify creates the announcer publishing to the given topic.
func NewNotify(publisher Publisher, topic string, qos byte, logger NotifyLogger) *Notify {
	return &Notify{
		Base: device.NewBase(map[string]any{
			"message": "",
		}),
		publisher: publisher,
		topic:     topic,
		qos:       qos,
		logger:    logger,
	}
}

func (n *Notify) Spec() device.Spec {
	return device.Spec{
		Name:   "announcer",
		Type:   "notify",
		Readme: "Sends a short message to the household (phones, speakers, panels). Write the text into message to announce it; keep announcements rare and worth interrupting someone for.",
		Selection: map[string]any{
			"message": device.Text(),
		},
	}
}

// SetPresent applies the new param and publishes any non-empty message.
// Publish failures are logged; the message still lands in the present map
// so the aggregate reflects what was attempted.
func (n *Notify) SetPresent(p map[string]any) {
	n.Base.SetPresent(p)

	msg, _ := p["message"].(string)
	if msg == "" || n.publisher == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"message":   msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := n.publisher.Publish(n.topic, payload, n.qos, false); err != nil && n.logger != nil {
		n.logger.Warn("announcement publish failed", "error", err)
	}
}
