package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orii-home/orii-core/internal/store"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ParamStore is the persistence surface the registry needs: keyed blob
// reads and writes. *store.Store satisfies it; a nil ParamStore disables
// persistence entirely.
type ParamStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
}

// profileKey is the store row holding the household metadata map.
const profileKey = "userinfo"

// entry pairs a plugin with its registry-assigned identity and readiness
// tracking.
type entry struct {
	id      int
	uuid    string
	spec    Spec
	plugin  Plugin
	readyAt time.Time

	mu    sync.Mutex
	ready bool
}

// isReady reports (and latches) readiness. Once an entry has gone ready it
// never goes back, even if a ReadyReporter later flaps.
func (e *entry) isReady(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return true
	}
	if now.Before(e.readyAt) {
		return false
	}
	if rr, ok := e.plugin.(ReadyReporter); ok && !rr.HardwareReady() {
		return false
	}
	e.ready = true
	return true
}

// Registry owns the device population: it constructs plugins from an
// ordered factory list, assigns contiguous ids starting at 0, seeds each
// device from the param store, tracks warm-up, and assembles the aggregate
// state document on demand.
//
// All public methods are safe for concurrent use after Build returns.
type Registry struct {
	params  ParamStore
	logger  Logger
	now     func() time.Time
	defProf map[string]any

	mu       sync.RWMutex
	built    bool
	metadata map[string]any
	entries  []*entry
	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithClock overrides the time source used for warm-up tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry. params may be nil to run without
// persistence. defaultProfile seeds the household metadata when the store
// has no persisted profile yet.
func NewRegistry(params ParamStore, defaultProfile map[string]any, opts ...Option) *Registry {
	r := &Registry{
		params:  params,
		logger:  noopLogger{},
		now:     time.Now,
		defProf: CopyMap(defaultProfile),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build constructs every device in factory order. A factory that returns an
// error is logged and skipped; the remaining devices close the gap so ids
// stay contiguous from 0. Persisted parameters are applied before any
// background runner starts, so a runner never races its own seed.
//
// Build is called once at startup. Calling it twice is an error.
func (r *Registry) Build(ctx context.Context, factories []Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return errors.New("device: registry already built")
	}

	r.metadata = r.loadProfile(ctx)
	r.runCtx, r.cancel = context.WithCancel(context.Background())

	now := r.now()
	for _, f := range factories {
		p, err := f.New()
		if err != nil {
			r.logger.Warn("device init failed, skipping", "device", f.Name, "error", err)
			continue
		}
		spec := p.Spec()

		e := &entry{
			id:      len(r.entries),
			uuid:    spec.UUID,
			spec:    spec,
			plugin:  p,
			readyAt: now.Add(spec.WarmUp),
		}
		if e.uuid == "" {
			e.uuid = uuid.NewString()
		}
		if spec.WarmUp <= 0 {
			if rr, ok := p.(ReadyReporter); !ok || rr.HardwareReady() {
				e.ready = true
			}
		}

		r.seedParams(ctx, e)

		if runner, ok := p.(Runner); ok {
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				runner.Run(r.runCtx)
			}()
		}

		r.entries = append(r.entries, e)
		r.logger.Info("device registered",
			"id", e.id, "name", spec.Name, "type", spec.Type,
			"warm_up", spec.WarmUp, "ready", e.ready)
	}

	r.built = true
	r.logger.Info("device registry built", "count", len(r.entries))
	return nil
}

// seedParams loads the persisted present map for one device, falling back
// to (and re-persisting) the factory default when the stored copy is
// missing, unreadable, or has drifted in shape. Store failures are logged
// and tolerated; the device always comes up with a usable present map.
func (r *Registry) seedParams(ctx context.Context, e *entry) {
	if r.params == nil || e.spec.PersistKey == "" {
		return
	}

	def := e.plugin.Present()
	blob, err := r.params.Read(ctx, e.spec.PersistKey)
	if err == nil {
		var persisted map[string]any
		if jerr := json.Unmarshal(blob, &persisted); jerr == nil && SameShape(persisted, def) {
			e.plugin.SetPresent(persisted)
			r.logger.Debug("device params restored", "device", e.spec.Name, "key", e.spec.PersistKey)
			return
		}
		r.logger.Warn("persisted params unusable, reseeding default",
			"device", e.spec.Name, "key", e.spec.PersistKey)
	} else if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("param store read failed, using default",
			"device", e.spec.Name, "key", e.spec.PersistKey, "error", err)
	}

	data, err := json.Marshal(def)
	if err != nil {
		r.logger.Error("device default params not serialisable", "device", e.spec.Name, "error", err)
		return
	}
	if err := r.params.Write(ctx, e.spec.PersistKey, data); err != nil {
		r.logger.Warn("param store seed write failed",
			"device", e.spec.Name, "key", e.spec.PersistKey, "error", err)
	}
}

// loadProfile returns the persisted household metadata, seeding the store
// with the configured default profile on first run.
func (r *Registry) loadProfile(ctx context.Context) map[string]any {
	def := CopyMap(r.defProf)
	if def == nil {
		def = map[string]any{}
	}
	if r.params == nil {
		return def
	}

	blob, err := r.params.Read(ctx, profileKey)
	if err == nil {
		var persisted map[string]any
		if jerr := json.Unmarshal(blob, &persisted); jerr == nil {
			return persisted
		}
		r.logger.Warn("persisted profile unreadable, reseeding default")
	} else if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("profile read failed, using default", "error", err)
	}

	if data, jerr := json.Marshal(def); jerr == nil {
		if werr := r.params.Write(ctx, profileKey, data); werr != nil {
			r.logger.Warn("profile seed write failed", "error", werr)
		}
	}
	return def
}

// Close stops all device runners and waits for them to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// descriptor assembles the wire descriptor for one entry from the plugin's
// live state.
func (e *entry) descriptor() Descriptor {
	return Descriptor{
		ID:     e.id,
		UUID:   e.uuid,
		Name:   e.spec.Name,
		Type:   e.spec.Type,
		Readme: e.spec.Readme,
		Param: Param{
			Present:   e.plugin.Present(),
			Selection: CopyMap(e.spec.Selection),
		},
	}
}

// Snapshot returns a deep copy of the full aggregate state. Each device's
// present map is captured atomically under that device's own lock, so a
// descriptor is never half-written even while the reconciler is applying
// actions elsewhere.
func (r *Registry) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := State{
		Metadata: CopyMap(r.metadata),
		Devices:  make([]Descriptor, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		s.Devices = append(s.Devices, e.descriptor())
	}
	return s
}

// VisibleSnapshot is Snapshot filtered to devices not marked Hidden. The
// HTTP listing uses it; the decision service always gets the full view.
func (r *Registry) VisibleSnapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := State{
		Metadata: CopyMap(r.metadata),
		Devices:  make([]Descriptor, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		if e.spec.Hidden {
			continue
		}
		s.Devices = append(s.Devices, e.descriptor())
	}
	return s
}

// Describe returns the descriptor for one device id.
func (r *Registry) Describe(id int) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.entry(id)
	if err != nil {
		return Descriptor{}, err
	}
	return e.descriptor(), nil
}

// Ready reports whether a device has finished warming up.
func (r *Registry) Ready(id int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.entry(id)
	if err != nil {
		return false, err
	}
	return e.isReady(r.now()), nil
}

// PollReady advances warm-up tracking and returns the ids of devices that
// became ready since the last poll. The scheduler calls this every tick and
// announces the transitions.
func (r *Registry) PollReady() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	var became []int
	for _, e := range r.entries {
		e.mu.Lock()
		already := e.ready
		e.mu.Unlock()
		if already {
			continue
		}
		if e.isReady(now) {
			became = append(became, e.id)
			r.logger.Info("device warm-up complete", "id", e.id, "name", e.spec.Name)
		}
	}
	return became
}

// CollectTriggered gathers the descriptors of every ready device whose
// trigger flag is raised and clears those flags. Devices still warming up
// are left untouched so their trigger fires once they come ready.
func (r *Registry) CollectTriggered() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	var batch []Descriptor
	for _, e := range r.entries {
		if !e.plugin.TriggerPending() {
			continue
		}
		if !e.isReady(now) {
			continue
		}
		e.plugin.ClearTrigger()
		batch = append(batch, e.descriptor())
	}
	return batch
}

// ApplyPresent validates and applies a replacement present map to one
// device. The new map must match the shape of the current one exactly;
// otherwise nothing is applied and ErrShapeMismatch is returned. Actions
// against devices still warming up fail with ErrNotReady.
func (r *Registry) ApplyPresent(id int, param map[string]any) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.entry(id)
	if err != nil {
		return Descriptor{}, err
	}
	if !e.isReady(r.now()) {
		return Descriptor{}, fmt.Errorf("%w: device %d", ErrNotReady, id)
	}
	if !SameShape(param, e.plugin.Present()) {
		return Descriptor{}, fmt.Errorf("%w: device %d", ErrShapeMismatch, id)
	}
	e.plugin.SetPresent(param)
	return e.descriptor(), nil
}

// PersistKey returns the store key for a device, or "" when the device does
// not persist its parameters.
func (r *Registry) PersistKey(id int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.entry(id)
	if err != nil {
		return "", err
	}
	return e.spec.PersistKey, nil
}

// UserInfo returns a copy of the household metadata map.
func (r *Registry) UserInfo() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CopyMap(r.metadata)
}

// SetUserInfo replaces the household metadata and persists it. A store
// failure is logged and reported but the in-memory copy is still updated.
func (r *Registry) SetUserInfo(ctx context.Context, md map[string]any) error {
	clone := CopyMap(md)

	r.mu.Lock()
	r.metadata = clone
	r.mu.Unlock()

	if r.params == nil {
		return nil
	}
	data, err := json.Marshal(clone)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := r.params.Write(ctx, profileKey, data); err != nil {
		r.logger.Warn("profile persist failed", "error", err)
		return fmt.Errorf("persisting profile: %w", err)
	}
	return nil
}

// entry looks up a device by id. Callers hold at least the read lock.
func (r *Registry) entry(id int) (*entry, error) {
	if !r.built {
		return nil, ErrNotBuilt
	}
	if id < 0 || id >= len(r.entries) {
		return nil, fmt.Errorf("%w: id %d", ErrDeviceNotFound, id)
	}
	return r.entries[id], nil
}
