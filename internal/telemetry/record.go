package telemetry

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/orii-home/orii-core/internal/device"
)

// stateMeasurement is the measurement that holds device present maps.
const stateMeasurement = "device_state"

// RecordDevice writes one device's present map as a point in the
// device_state measurement. Nested maps are flattened with dotted field
// names; numeric leaves are written as floats and booleans as 0/1.
// Non-numeric leaves are skipped, so free-text fields never bloat the
// series. The write is non-blocking.
func (c *Client) RecordDevice(d device.Descriptor) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{})
	flattenNumeric("", d.Param.Present, fields)
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		stateMeasurement,
		map[string]string{
			"device_id": strconv.Itoa(d.ID),
			"name":      d.Name,
			"type":      d.Type,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// flattenNumeric walks a present map and collects numeric leaves under
// dotted paths ("rgb.r", "env.co2").
func flattenNumeric(prefix string, m map[string]any, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenNumeric(key, val, out)
		case float64:
			out[key] = val
		case float32:
			out[key] = float64(val)
		case int:
			out[key] = float64(val)
		case int64:
			out[key] = float64(val)
		case bool:
			if val {
				out[key] = float64(1)
			} else {
				out[key] = float64(0)
			}
		}
	}
}
