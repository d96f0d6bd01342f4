package automation

import (
	"context"
	"sync"
	"time"

	"github.com/orii-home/orii-core/internal/decision"
	"github.com/orii-home/orii-core/internal/device"
)

// Orchestrator is the hub's composition point: it builds the device
// registry, sends the initial full-state report, and keeps the scheduler
// running until shutdown. The HTTP layer talks to the rest of the system
// through it.
type Orchestrator struct {
	registry   *device.Registry
	decider    Decider
	reconciler *Reconciler
	interval   time.Duration
	hub        Broadcaster
	logger     Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewOrchestrator wires an orchestrator. hub may be nil.
func NewOrchestrator(registry *device.Registry, decider Decider, reconciler *Reconciler, hub Broadcaster, interval time.Duration, logger Logger) *Orchestrator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Orchestrator{
		registry:   registry,
		decider:    decider,
		reconciler: reconciler,
		interval:   interval,
		hub:        hub,
		logger:     logger,
	}
}

// Start builds the device population, publishes the initial report, and
// launches the scheduler. An init-report failure is logged but does not
// abort startup; the hub still serves reads and the next trigger retries
// the conversation.
func (o *Orchestrator) Start(ctx context.Context, factories []device.Factory) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return ErrAlreadyStarted
	}

	if err := o.registry.Build(ctx, factories); err != nil {
		return err
	}

	snapshot := o.registry.Snapshot()
	o.decider.SetContext(snapshot)

	actions, err := o.decider.Decide(ctx, decision.StatusInit, snapshot.Devices)
	if err != nil {
		o.logger.Warn("initial report failed", "error", err)
	} else if len(actions) > 0 {
		applied := o.reconciler.Apply(ctx, actions)
		o.logger.Info("initial actions applied", "actions", len(actions), "applied", applied)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.done = make(chan struct{})
	sched := NewScheduler(o.registry, o.decider, o.reconciler, o.hub, o.interval, o.logger)
	go func() {
		defer close(o.done)
		sched.Run(runCtx)
	}()

	o.started = true
	o.logger.Info("orchestrator started", "devices", o.registry.Count())
	return nil
}

// Stop halts the scheduler and the device runners. Safe to call more than
// once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	o.cancel = nil
	o.started = false
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	o.registry.Close()
}

// Snapshot returns the full aggregate state.
func (o *Orchestrator) Snapshot() device.State { return o.registry.Snapshot() }

// VisibleSnapshot returns the aggregate state without hidden devices.
func (o *Orchestrator) VisibleSnapshot() device.State { return o.registry.VisibleSnapshot() }

// Describe returns one device's descriptor.
func (o *Orchestrator) Describe(id int) (device.Descriptor, error) {
	return o.registry.Describe(id)
}

// Submit applies an externally supplied action batch through the same
// validation path the decision service's actions take. It returns the
// number of actions that took effect.
func (o *Orchestrator) Submit(ctx context.Context, actions []device.Action) int {
	return o.reconciler.Apply(ctx, actions)
}

// UserInfo returns the household metadata map.
func (o *Orchestrator) UserInfo() map[string]any { return o.registry.UserInfo() }

// SetUserInfo replaces and persists the household metadata, then refreshes
// the decision context so the service sees the new profile immediately.
func (o *Orchestrator) SetUserInfo(ctx context.Context, md map[string]any) error {
	err := o.registry.SetUserInfo(ctx, md)
	o.decider.SetContext(o.registry.Snapshot())
	return err
}
