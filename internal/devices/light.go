package devices

import "github.com/orii-home/orii-core/internal/device"

// Light is a virtual RGB lamp. It is a pure actuator: the decision service
// (or the control endpoint) drives it and it never raises a trigger of its
// own.
type Light struct {
	*device.Base
	name string
}

// NewLight creates a light with the given name, off and at full warm white.
func NewLight(name string) *Light {
	return &Light{
		Base: device.NewBase(map[string]any{
			"on":    false,
			"level": float64(100),
			"rgb": map[string]any{
				"r": float64(255),
				"g": float64(244),
				"b": float64(229),
			},
		}),
		name: name,
	}
}

func (l *Light) Spec() device.Spec {
	return device.Spec{
		Name:   l.name,
		Type:   "light",
		Readme: "An RGB lamp. Turn it on or off, set brightness with level (0-100), and tint it with rgb (0-255 per channel). Prefer warm tones in the evening and only switch it when someone benefits.",
		Selection: map[string]any{
			"on":    device.Select(true, false),
			"level": device.Range(0, 100),
			"rgb": map[string]any{
				"r": device.Range(0, 255),
				"g": device.Range(0, 255),
				"b": device.Range(0, 255),
			},
		},
		PersistKey: "device." + l.name,
	}
}
