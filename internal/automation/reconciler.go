package automation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/orii-home/orii-core/internal/device"
)

// Logger defines the logging interface used by the automation package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceRegistry is the surface the reconciler and scheduler need from the
// device package.
type DeviceRegistry interface {
	Snapshot() device.State
	PollReady() []int
	CollectTriggered() []device.Descriptor
	ApplyPresent(id int, param map[string]any) (device.Descriptor, error)
	PersistKey(id int) (string, error)
	Describe(id int) (device.Descriptor, error)
}

// ParamWriter persists device parameter maps. *store.Store satisfies it.
type ParamWriter interface {
	Write(ctx context.Context, key string, value []byte) error
}

// Decider turns device reports into action lists. *decision.Client
// satisfies it.
type Decider interface {
	Decide(ctx context.Context, status string, devices []device.Descriptor) ([]device.Action, error)
	SetContext(state device.State)
}

// Broadcaster pushes events to connected WebSocket clients. The api Hub
// satisfies it; nil disables broadcasting.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Recorder captures applied device state for the time-series backend.
// Nil disables recording.
type Recorder interface {
	RecordDevice(d device.Descriptor)
}

// Reconciler validates and applies action lists returned by the decision
// service. Every failure is soft: a bad action is dropped with a log line
// and the rest of the batch still applies. An applied action is pushed to
// the param store, the WebSocket hub, and the telemetry recorder, and the
// decision context is refreshed once per batch.
type Reconciler struct {
	registry  DeviceRegistry
	store     ParamWriter
	decider   Decider
	hub       Broadcaster
	telemetry Recorder
	logger    Logger
}

// NewReconciler wires a reconciler. store, hub, and telemetry may be nil.
func NewReconciler(registry DeviceRegistry, store ParamWriter, decider Decider, hub Broadcaster, telemetry Recorder, logger Logger) *Reconciler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Reconciler{
		registry:  registry,
		store:     store,
		decider:   decider,
		hub:       hub,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Apply runs one action batch and returns how many actions took effect.
// An action is dropped whole when its device id is unknown, the device is
// still warming up, or the param shape does not match; partial application
// of a single action never happens.
func (r *Reconciler) Apply(ctx context.Context, actions []device.Action) int {
	applied := 0
	for _, action := range actions {
		if action.Param == nil {
			r.logger.Warn("action without param dropped", "id", action.ID)
			continue
		}

		desc, err := r.registry.ApplyPresent(action.ID, action.Param)
		if err != nil {
			switch {
			case errors.Is(err, device.ErrDeviceNotFound):
				r.logger.Warn("action for unknown device dropped", "id", action.ID)
			case errors.Is(err, device.ErrNotReady):
				r.logger.Warn("action for warming device dropped", "id", action.ID)
			case errors.Is(err, device.ErrShapeMismatch):
				r.logger.Warn("action with mismatched shape dropped", "id", action.ID)
			default:
				r.logger.Warn("action dropped", "id", action.ID, "error", err)
			}
			continue
		}
		applied++

		r.persist(ctx, desc)
		if r.hub != nil {
			r.hub.Broadcast("device.state", map[string]any{
				"id":    desc.ID,
				"param": desc.Param.Present,
			})
		}
		if r.telemetry != nil {
			r.telemetry.RecordDevice(desc)
		}
	}

	if applied > 0 {
		r.decider.SetContext(r.registry.Snapshot())
	}
	return applied
}

// persist writes the device's new present map through to the param store.
// A store failure costs durability for this write only; the in-memory
// state is already live.
func (r *Reconciler) persist(ctx context.Context, desc device.Descriptor) {
	if r.store == nil {
		return
	}
	key, err := r.registry.PersistKey(desc.ID)
	if err != nil || key == "" {
		return
	}
	data, err := json.Marshal(desc.Param.Present)
	if err != nil {
		r.logger.Error("present map not serialisable", "id", desc.ID, "error", err)
		return
	}
	if err := r.store.Write(ctx, key, data); err != nil {
		r.logger.Warn("param persist failed", "id", desc.ID, "key", key, "error", err)
	}
}
