package device

import "time"

// Selection markers used inside a Spec's Selection map. A writable leaf is
// an array headed by a marker: ["__SELECT__", v1, v2, ...] enumerates the
// permitted values, ["__RANGE__", min, max] bounds a numeric field, and
// ["__TEXT__"] allows free-form text. The decision service receives these
// verbatim as the schema of what it may write back.
const (
	SelectMarker = "__SELECT__"
	RangeMarker  = "__RANGE__"
	TextMarker   = "__TEXT__"
)

// Selection leaf constructors.

// Select builds an enumerated-choice selection leaf.
func Select(values ...any) []any {
	return append([]any{SelectMarker}, values...)
}

// Range builds a bounded numeric selection leaf.
func Range(min, max float64) []any {
	return []any{RangeMarker, min, max}
}

// Text builds a free-form text selection leaf.
func Text() []any {
	return []any{TextMarker}
}

// Spec is the static identity a plugin declares once at construction.
// Everything here is fixed for the life of the process; live state travels
// through Present/SetPresent instead.
type Spec struct {
	// Name is the human-readable device name shown to the decision service.
	Name string

	// Type classifies the device ("light", "sensor", "door", ...).
	Type string

	// Readme is free-form prose describing what the device does and how its
	// parameters behave. It is forwarded to the decision service as context.
	Readme string

	// Selection mirrors the shape of the present map and annotates writable
	// leaves with SelectMarker / RangeMarker constraints. Nil means the
	// device is read-only from the decision service's point of view.
	Selection map[string]any

	// UUID is a stable hardware identity. Left empty, the registry assigns
	// a random one at build time.
	UUID string

	// PersistKey names the row in the param store used to seed and persist
	// this device's present map. Empty disables persistence.
	PersistKey string

	// WarmUp is how long after construction the device needs before its
	// readings are trustworthy. Zero means ready immediately.
	WarmUp time.Duration

	// Hidden excludes the device from user-facing listings. It still
	// participates in the aggregate sent to the decision service.
	Hidden bool
}

// Param is the wire form of a device's parameter block.
type Param struct {
	Present   map[string]any `json:"present"`
	Selection map[string]any `json:"selection,omitempty"`
}

// Descriptor is one device's entry in the aggregate state document.
type Descriptor struct {
	ID     int    `json:"id"`
	UUID   string `json:"uuid,omitempty"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Readme string `json:"readme,omitempty"`
	Param  Param  `json:"param"`
}

// State is the full aggregate: household metadata plus every device's
// descriptor, ordered by id. It is what the decision service reasons over
// and what the HTTP surface serves.
type State struct {
	Metadata map[string]any `json:"metadata"`
	Devices  []Descriptor   `json:"devices"`
}

// Action is one device-targeted instruction returned by the decision
// service: a device id and a full replacement present map.
type Action struct {
	ID    int            `json:"id"`
	Param map[string]any `json:"param"`
}

// CopyMap returns a deep copy of a present-shaped map. Nested maps are
// cloned recursively; slices are cloned one level deep. Scalar leaves are
// shared, which is safe because they are never mutated in place.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			out[k] = CopyMap(val)
		case []any:
			s := make([]any, len(val))
			copy(s, val)
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

// DeepCopy clones the descriptor so callers can hand it out without
// exposing live registry state.
func (d Descriptor) DeepCopy() Descriptor {
	d.Param.Present = CopyMap(d.Param.Present)
	d.Param.Selection = CopyMap(d.Param.Selection)
	return d
}

// DeepCopy clones the aggregate, descriptors included.
func (s State) DeepCopy() State {
	out := State{Metadata: CopyMap(s.Metadata)}
	if s.Devices != nil {
		out.Devices = make([]Descriptor, len(s.Devices))
		for i, d := range s.Devices {
			out.Devices[i] = d.DeepCopy()
		}
	}
	return out
}
