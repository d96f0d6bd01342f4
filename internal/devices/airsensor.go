package devices

import (
	"context"
	"time"

	"github.com/orii-home/orii-core/internal/device"
	"github.com/orii-home/orii-core/internal/infrastructure/config"
)

// Air-quality status values, in escalation order.
const (
	airNormal    = "normal"
	airAbnormal1 = "abnormal1"
	airAbnormal2 = "abnormal2"
)

// airSampleInterval is how often the sensor is read.
const airSampleInterval = 2 * time.Second

// Sampler reads one air-quality measurement. Implementations wrap real
// hardware; tests and broker-less deployments use a synthetic one.
type Sampler interface {
	Sample() (co2 float64, tvoc float64, err error)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func() (float64, float64, error)

func (f SamplerFunc) Sample() (float64, float64, error) { return f() }

// AirSensor is a CO2/TVOC sensor with escalating alarm behaviour. It
// raises its trigger when the air quality crosses into a worse band, when
// it recovers to normal, and repeatedly (at the configured interval) while
// it stays abnormal so the decision service keeps getting reminded.
//
// The sensor declares a warm-up window; readings taken before the
// hardware has stabilised are discarded by the registry's readiness gate.
type AirSensor struct {
	*device.Base
	cfg     config.AirSensorConfig
	sampler Sampler
	now     func() time.Time

	status      string
	lastTrigger time.Time
}

// NewAirSensor creates an air sensor reading from the given sampler.
func NewAirSensor(cfg config.AirSensorConfig, sampler Sampler) *AirSensor {
	return &AirSensor{
		Base: device.NewBase(map[string]any{
			"co2":    float64(400),
			"tvoc":   float64(0),
			"status": airNormal,
		}),
		cfg:     cfg,
		sampler: sampler,
		now:     time.Now,
		status:  airNormal,
	}
}

func (a *AirSensor) Spec() device.Spec {
	return device.Spec{
		Name:   "air sensor",
		Type:   "sensor",
		Readme: "Indoor air quality: co2 in ppm and tvoc in ppb. status escalates from normal to abnormal1 (ventilation advised) to abnormal2 (ventilation needed now). Read-only; respond to bad air by adjusting other devices or notifying the household.",
		WarmUp: time.Duration(a.cfg.WarmUpSeconds) * time.Second,
	}
}

// Run samples the hardware until the context is cancelled.
func (a *AirSensor) Run(ctx context.Context) {
	ticker := time.NewTicker(airSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sample()
		}
	}
}

// sample takes one reading and applies the escalation rules.
func (a *AirSensor) sample() {
	co2, tvoc, err := a.sampler.Sample()
	if err != nil {
		return
	}

	status := a.classify(co2, tvoc)

	a.Update(func(present map[string]any) {
		present["co2"] = co2
		present["tvoc"] = tvoc
		present["status"] = status
	})

	now := a.now()
	switch {
	case status != a.status:
		// Band change in either direction reports immediately.
		a.RaiseTrigger()
		a.lastTrigger = now
	case status != airNormal && now.Sub(a.lastTrigger) >= time.Duration(a.cfg.RepeatInterval)*time.Second:
		// Sustained bad air re-reports at the configured cadence.
		a.RaiseTrigger()
		a.lastTrigger = now
	}
	a.status = status
}

// classify maps a reading onto the escalation bands.
func (a *AirSensor) classify(co2, tvoc float64) string {
	switch {
	case co2 >= float64(a.cfg.CO2Alert) || tvoc >= float64(a.cfg.TVOCAlert):
		return airAbnormal2
	case co2 >= float64(a.cfg.CO2Warn) || tvoc >= float64(a.cfg.TVOCWarn):
		return airAbnormal1
	default:
		return airNormal
	}
}
