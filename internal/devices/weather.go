package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orii-home/orii-core/internal/device"
	"github.com/orii-home/orii-core/internal/infrastructure/config"
)

// weatherFetchTimeout bounds one upstream request.
const weatherFetchTimeout = 10 * time.Second

// weatherRefreshFloor is the refresh cadence used when the configured
// interval is not positive.
const weatherRefreshFloor = 600 * time.Second

// WeatherLogger is the logging surface the weather device needs.
type WeatherLogger interface {
	Warn(msg string, args ...any)
}

// Weather is a virtual-in device mirroring outdoor conditions from the
// Caiyun realtime API. It refreshes on a fixed interval and raises its
// trigger when the sky condition changes, so the decision service learns
// about rain starting without polling the whole aggregate.
type Weather struct {
	*device.Base
	cfg        config.WeatherConfig
	httpClient *http.Client
	logger     WeatherLogger

	skycon string
}

// NewWeather creates the weather device for the configured location.
func NewWeather(cfg config.WeatherConfig, logger WeatherLogger) *Weather {
	return &Weather{
		Base: device.NewBase(map[string]any{
			"city":        cfg.City,
			"temperature": float64(0),
			"humidity":    float64(0),
			"skycon":      "",
		}),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: weatherFetchTimeout},
		logger:     logger,
	}
}

func (w *Weather) Spec() device.Spec {
	return device.Spec{
		Name:   "weather",
		Type:   "weather",
		Readme: "Outdoor conditions for the home's city: temperature in celsius, relative humidity 0-1, and skycon (CLEAR_DAY, PARTLY_CLOUDY_DAY, RAIN, SNOW and similar). Read-only context for your decisions.",
	}
}

// Run refreshes the reading until the context is cancelled. The first
// fetch happens immediately so the aggregate has weather before the
// first report.
func (w *Weather) Run(ctx context.Context) {
	w.refresh(ctx)

	interval := time.Duration(w.cfg.RefreshInterval) * time.Second
	if interval <= 0 {
		interval = weatherRefreshFloor
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// realtimeResponse is the subset of the Caiyun realtime payload we use.
type realtimeResponse struct {
	Status string `json:"status"`
	Result struct {
		Realtime struct {
			Temperature float64 `json:"temperature"`
			Humidity    float64 `json:"humidity"`
			Skycon      string  `json:"skycon"`
		} `json:"realtime"`
	} `json:"result"`
}

// refresh fetches the current conditions. Failures leave the previous
// reading in place.
func (w *Weather) refresh(ctx context.Context) {
	url := fmt.Sprintf("%s/v2.6/%s/%s/realtime", w.cfg.BaseURL, w.cfg.APIKey, w.cfg.Location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("weather fetch failed", "error", err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if w.logger != nil {
			w.logger.Warn("weather fetch failed", "status", resp.StatusCode)
		}
		return
	}

	var payload realtimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Status != "ok" {
		if w.logger != nil {
			w.logger.Warn("weather response unusable", "error", err, "status", payload.Status)
		}
		return
	}

	rt := payload.Result.Realtime
	w.Update(func(present map[string]any) {
		present["temperature"] = rt.Temperature
		present["humidity"] = rt.Humidity
		present["skycon"] = rt.Skycon
	})

	if rt.Skycon != w.skycon {
		if w.skycon != "" {
			w.RaiseTrigger()
		}
		w.skycon = rt.Skycon
	}
}
