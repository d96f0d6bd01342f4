package automation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/orii-home/orii-core/internal/device"
	"github.com/orii-home/orii-core/internal/store"
)

// testPlugin is a minimal device for wiring real registries in tests.
type testPlugin struct {
	*device.Base
	spec device.Spec
}

func newTestPlugin(spec device.Spec, present map[string]any) *testPlugin {
	return &testPlugin{Base: device.NewBase(present), spec: spec}
}

func (p *testPlugin) Spec() device.Spec { return p.spec }

func factoryFor(p device.Plugin) device.Factory {
	return device.Factory{Name: p.Spec().Name, New: func() (device.Plugin, error) { return p, nil }}
}

func buildRegistry(t *testing.T, params device.ParamStore, opts []device.Option, plugins ...device.Plugin) *device.Registry {
	t.Helper()
	factories := make([]device.Factory, 0, len(plugins))
	for _, p := range plugins {
		factories = append(factories, factoryFor(p))
	}
	reg := device.NewRegistry(params, nil, opts...)
	if err := reg.Build(context.Background(), factories); err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(reg.Close)
	return reg
}

// fakeDecider returns canned action lists and records what it was asked.
type fakeDecider struct {
	mu       sync.Mutex
	actions  []device.Action
	err      error
	statuses []string
	batches  [][]device.Descriptor
	contexts []device.State
}

func (f *fakeDecider) Decide(_ context.Context, status string, devices []device.Descriptor) ([]device.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.batches = append(f.batches, devices)
	return f.actions, f.err
}

func (f *fakeDecider) SetContext(state device.State) {
	f.mu.Lock()
	f.contexts = append(f.contexts, state)
	f.mu.Unlock()
}

func (f *fakeDecider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statuses)
}

// fakeParamWriter records store writes.
type fakeParamWriter struct {
	mu     sync.Mutex
	rows   map[string][]byte
	err    error
	writes int
}

func newFakeParamWriter() *fakeParamWriter {
	return &fakeParamWriter{rows: make(map[string][]byte)}
}

func (f *fakeParamWriter) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeParamWriter) Write(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.err != nil {
		return f.err
	}
	f.rows[key] = value
	return nil
}

// fakeHub records broadcasts.
type fakeHub struct {
	mu     sync.Mutex
	events []struct {
		channel string
		payload any
	}
}

func (f *fakeHub) Broadcast(channel string, payload any) {
	f.mu.Lock()
	f.events = append(f.events, struct {
		channel string
		payload any
	}{channel, payload})
	f.mu.Unlock()
}

func (f *fakeHub) count(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.channel == channel {
			n++
		}
	}
	return n
}

// fakeRecorder records telemetry points.
type fakeRecorder struct {
	mu    sync.Mutex
	descs []device.Descriptor
}

func (f *fakeRecorder) RecordDevice(d device.Descriptor) {
	f.mu.Lock()
	f.descs = append(f.descs, d)
	f.mu.Unlock()
}

func TestApplyPropagatesEverywhere(t *testing.T) {
	lamp := newTestPlugin(device.Spec{Name: "lamp", PersistKey: "lamp"},
		map[string]any{"on": false, "level": float64(0)})

	pw := newFakeParamWriter()
	reg := buildRegistry(t, pw, nil, lamp)
	dec := &fakeDecider{}
	hub := &fakeHub{}
	rec := &fakeRecorder{}
	r := NewReconciler(reg, pw, dec, hub, rec, nil)

	applied := r.Apply(context.Background(), []device.Action{
		{ID: 0, Param: map[string]any{"on": true, "level": float64(80)}},
	})
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}

	if got := lamp.Present(); got["level"] != float64(80) {
		t.Errorf("device present = %v, want applied action", got)
	}

	var stored map[string]any
	if err := json.Unmarshal(pw.rows["lamp"], &stored); err != nil {
		t.Fatalf("store row not JSON: %v", err)
	}
	if stored["level"] != float64(80) {
		t.Errorf("persisted = %v, want new present map", stored)
	}

	if hub.count("device.state") != 1 {
		t.Errorf("device.state broadcasts = %d, want 1", hub.count("device.state"))
	}
	if len(rec.descs) != 1 || rec.descs[0].ID != 0 {
		t.Errorf("telemetry records = %v, want device 0", rec.descs)
	}
	if len(dec.contexts) != 1 {
		t.Errorf("context refreshes = %d, want 1 per batch", len(dec.contexts))
	}
}

func TestApplySameActionTwiceIsIdempotent(t *testing.T) {
	lamp := newTestPlugin(device.Spec{Name: "lamp", PersistKey: "lamp"},
		map[string]any{"on": false, "level": float64(0)})

	pw := newFakeParamWriter()
	reg := buildRegistry(t, pw, nil, lamp)
	r := NewReconciler(reg, pw, &fakeDecider{}, nil, nil, nil)

	action := []device.Action{
		{ID: 0, Param: map[string]any{"on": true, "level": float64(40)}},
	}
	if applied := r.Apply(context.Background(), action); applied != 1 {
		t.Fatalf("first apply = %d, want 1", applied)
	}
	first := lamp.Present()
	firstRow := append([]byte(nil), pw.rows["lamp"]...)

	if applied := r.Apply(context.Background(), action); applied != 1 {
		t.Fatalf("second apply = %d, want 1", applied)
	}
	second := lamp.Present()

	if len(first) != len(second) {
		t.Fatalf("present changed on repeat: %v then %v", first, second)
	}
	for k, v := range first {
		if second[k] != v {
			t.Errorf("present[%q] = %v after repeat, want %v", k, second[k], v)
		}
	}
	if string(pw.rows["lamp"]) != string(firstRow) {
		t.Errorf("persisted row changed on repeat: %s then %s", firstRow, pw.rows["lamp"])
	}
}

func TestApplyDropsBadActionsKeepsGood(t *testing.T) {
	lamp := newTestPlugin(device.Spec{Name: "lamp"}, map[string]any{"on": false})
	door := newTestPlugin(device.Spec{Name: "door"}, map[string]any{"open": false})

	reg := buildRegistry(t, nil, nil, lamp, door)
	dec := &fakeDecider{}
	r := NewReconciler(reg, nil, dec, nil, nil, nil)

	applied := r.Apply(context.Background(), []device.Action{
		{ID: 9, Param: map[string]any{"on": true}},          // unknown id
		{ID: 0, Param: map[string]any{"brightness": 1.0}},   // wrong shape
		{ID: 0, Param: nil},                                 // missing param
		{ID: 1, Param: map[string]any{"open": true}},        // valid
	})
	if applied != 1 {
		t.Fatalf("applied = %d, want only the valid action", applied)
	}
	if got := lamp.Present(); got["on"] != false {
		t.Errorf("lamp present = %v, want untouched", got)
	}
	if got := door.Present(); got["open"] != true {
		t.Errorf("door present = %v, want applied", got)
	}
}

func TestApplyRejectsWarmingDevice(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	air := newTestPlugin(device.Spec{Name: "air", WarmUp: 15 * time.Second},
		map[string]any{"co2": float64(400)})

	reg := buildRegistry(t, nil, []device.Option{device.WithClock(func() time.Time { return now })}, air)
	dec := &fakeDecider{}
	r := NewReconciler(reg, nil, dec, nil, nil, nil)

	applied := r.Apply(context.Background(), []device.Action{
		{ID: 0, Param: map[string]any{"co2": float64(600)}},
	})
	if applied != 0 {
		t.Fatalf("applied = %d, want 0 during warm-up", applied)
	}
	if got := air.Present(); got["co2"] != float64(400) {
		t.Errorf("present = %v, want untouched", got)
	}
	if len(dec.contexts) != 0 {
		t.Error("context refreshed for an empty batch")
	}
}

func TestApplyStoreFailureIsSoft(t *testing.T) {
	lamp := newTestPlugin(device.Spec{Name: "lamp", PersistKey: "lamp"},
		map[string]any{"on": false})

	reg := buildRegistry(t, nil, nil, lamp)
	pw := newFakeParamWriter()
	pw.err = context.DeadlineExceeded
	dec := &fakeDecider{}
	r := NewReconciler(reg, pw, dec, nil, nil, nil)

	applied := r.Apply(context.Background(), []device.Action{
		{ID: 0, Param: map[string]any{"on": true}},
	})
	if applied != 1 {
		t.Fatalf("applied = %d, want 1 despite store failure", applied)
	}
	if got := lamp.Present(); got["on"] != true {
		t.Errorf("present = %v, want live state applied", got)
	}
}
