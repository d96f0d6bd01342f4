package automation

import (
	"context"
	"time"

	"github.com/orii-home/orii-core/internal/decision"
)

// Scheduler drives the hub's polling loop. On every tick it advances
// warm-up tracking, harvests raised trigger flags into one batch, asks the
// decision service what to do, and hands the answer to the reconciler.
// A tick with nothing triggered costs one pass over the device list and
// no network traffic.
//
// Trigger flags are cleared when collected. If the decision service then
// fails, the cycle is dropped; a device that still cares re-raises its
// flag and the next tick picks it up.
type Scheduler struct {
	registry   DeviceRegistry
	decider    Decider
	reconciler *Reconciler
	hub        Broadcaster
	interval   time.Duration
	logger     Logger
}

// NewScheduler wires a scheduler. hub may be nil.
func NewScheduler(registry DeviceRegistry, decider Decider, reconciler *Reconciler, hub Broadcaster, interval time.Duration, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		registry:   registry,
		decider:    decider,
		reconciler: reconciler,
		hub:        hub,
		interval:   interval,
		logger:     logger,
	}
}

// Run ticks until the context is cancelled. It blocks; callers run it in
// its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick is one scheduling cycle.
func (s *Scheduler) tick(ctx context.Context) {
	for _, id := range s.registry.PollReady() {
		if s.hub != nil {
			s.hub.Broadcast("device.ready", map[string]any{"id": id})
		}
	}

	batch := s.registry.CollectTriggered()
	if len(batch) == 0 {
		return
	}
	s.logger.Debug("trigger batch collected", "devices", len(batch))

	actions, err := s.decider.Decide(ctx, decision.StatusTrigger, batch)
	if err != nil {
		s.logger.Warn("decision failed, cycle dropped", "devices", len(batch), "error", err)
		return
	}

	applied := s.reconciler.Apply(ctx, actions)
	s.logger.Debug("cycle complete", "reported", len(batch), "actions", len(actions), "applied", applied)
}
