package devices

import (
	"math/rand"
	"sync"

	"github.com/orii-home/orii-core/internal/device"
	"github.com/orii-home/orii-core/internal/infrastructure/config"
)

// Deps carries the shared infrastructure the plugins draw on. Nil fields
// disable the devices that need them.
type Deps struct {
	// MQTT enables the announcer and inbox devices.
	MQTT interface {
		Publisher
		Subscriber
	}

	// DoorEvents feeds the door contact. Nil disables the door.
	DoorEvents <-chan bool

	// Sampler reads the air sensor hardware. Nil substitutes the
	// synthetic sampler, which keeps the full loop alive on a dev box.
	Sampler Sampler

	// Logger receives plugin warnings. May be nil.
	Logger interface {
		Warn(msg string, args ...any)
	}
}

// Factories returns the device factory list in registration order. The
// order is part of the hub's contract: it fixes the ids the decision
// service and the persisted conversation context refer to, so new devices
// belong at the end.
func Factories(cfg *config.Config, deps Deps) []device.Factory {
	sampler := deps.Sampler
	if sampler == nil {
		sampler = NewSyntheticSampler()
	}

	factories := []device.Factory{
		{Name: "living room lamp", New: func() (device.Plugin, error) {
			return NewLight("living room lamp"), nil
		}},
		{Name: "bedroom lamp", New: func() (device.Plugin, error) {
			return NewLight("bedroom lamp"), nil
		}},
		{Name: "air sensor", New: func() (device.Plugin, error) {
			return NewAirSensor(cfg.Devices.AirSensor, sampler), nil
		}},
	}

	if deps.DoorEvents != nil {
		factories = append(factories, device.Factory{
			Name: "front door",
			New: func() (device.Plugin, error) {
				return NewDoor("front door", deps.DoorEvents), nil
			},
		})
	}

	if deps.MQTT != nil {
		factories = append(factories,
			device.Factory{Name: "announcer", New: func() (device.Plugin, error) {
				return NewNotify(deps.MQTT, cfg.MQTT.Topics.Notify, byte(cfg.MQTT.QoS), deps.Logger), nil
			}},
			device.Factory{Name: "inbox", New: func() (device.Plugin, error) {
				return NewInbox(deps.MQTT, cfg.MQTT.Topics.Inbox, byte(cfg.MQTT.QoS), deps.Logger), nil
			}},
		)
	}

	if cfg.Devices.Weather.Enabled {
		factories = append(factories, device.Factory{
			Name: "weather",
			New: func() (device.Plugin, error) {
				return NewWeather(cfg.Devices.Weather, deps.Logger), nil
			},
		})
	}

	return factories
}

// SyntheticSampler produces plausible indoor air readings that wander
// around a baseline. It stands in for real hardware on development
// machines.
type SyntheticSampler struct {
	mu   sync.Mutex
	co2  float64
	tvoc float64
}

// NewSyntheticSampler starts at typical indoor background levels.
func NewSyntheticSampler() *SyntheticSampler {
	return &SyntheticSampler{co2: 450, tvoc: 50}
}

// Sample returns the next synthetic reading.
func (s *SyntheticSampler) Sample() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.co2 += (rand.Float64() - 0.5) * 20
	if s.co2 < 400 {
		s.co2 = 400
	}
	s.tvoc += (rand.Float64() - 0.5) * 10
	if s.tvoc < 0 {
		s.tvoc = 0
	}
	return s.co2, s.tvoc, nil
}
