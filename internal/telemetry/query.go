package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Sample is one historical field value for a device.
type Sample struct {
	Time  time.Time `json:"time"`
	Field string    `json:"field"`
	Value float64   `json:"value"`
}

// maxHistorySamples caps how many rows one history query returns.
const maxHistorySamples = 1000

// History returns the recorded state samples for one device since the
// given time, oldest first.
func (c *Client) History(ctx context.Context, deviceID int, since time.Duration) ([]Sample, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%s)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r.device_id == %q)
  |> sort(columns: ["_time"])
  |> limit(n: %d)`,
		c.cfg.Bucket, since.String(), stateMeasurement,
		strconv.Itoa(deviceID), maxHistorySamples)

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer result.Close()

	var samples []Sample
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		samples = append(samples, Sample{
			Time:  record.Time(),
			Field: record.Field(),
			Value: value,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, result.Err())
	}

	return samples, nil
}
