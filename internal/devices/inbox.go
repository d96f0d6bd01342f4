package devices

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/orii-home/orii-core/internal/device"
)

// maxInboxMessage caps how much of an inbound payload reaches the
// decision service.
const maxInboxMessage = 512

// Subscriber is the MQTT surface the inbox needs. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
}

// InboxLogger is the logging surface the inbox needs.
type InboxLogger interface {
	Warn(msg string, args ...any)
}

// Inbox is a hidden virtual device that turns MQTT messages into decision
// cycles. Anything published to the inbox topic (a phone shortcut, a wall
// button, another service) lands in the present map and raises the
// trigger, giving the household a free-text channel to the hub.
type Inbox struct {
	*device.Base
	subscriber Subscriber
	topic      string
	qos        byte
	logger     InboxLogger
}

// NewInbox creates the inbox listening on the given topic.
func NewInbox(subscriber Subscriber, topic string, qos byte, logger InboxLogger) *Inbox {
	return &Inbox{
		Base: device.NewBase(map[string]any{
			"message": "",
		}),
		subscriber: subscriber,
		topic:      topic,
		qos:        qos,
		logger:     logger,
	}
}

func (i *Inbox) Spec() device.Spec {
	return device.Spec{
		Name:   "inbox",
		Type:   "inbox",
		Readme: "Free-text requests from the household, for example 'movie night' or 'leaving for work'. message holds the latest request; act on it across the other devices.",
		Hidden: true,
	}
}

// Run subscribes to the inbox topic and holds the subscription until the
// context is cancelled. Subscribing here rather than at construction
// means the first message can never race the persisted-param seed.
func (i *Inbox) Run(ctx context.Context) {
	err := i.subscriber.Subscribe(i.topic, i.qos, func(_ string, payload []byte) error {
		msg := strings.TrimSpace(string(payload))
		if msg == "" {
			return nil
		}
		if len(msg) > maxInboxMessage {
			msg = truncateRunes(msg, maxInboxMessage)
		}
		i.Update(func(present map[string]any) {
			present["message"] = msg
		})
		i.RaiseTrigger()
		return nil
	})
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("inbox subscribe failed", "topic", i.topic, "error", err)
		}
		return
	}

	<-ctx.Done()
	i.subscriber.Unsubscribe(i.topic)
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
