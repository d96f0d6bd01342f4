// Package automation drives Orii Core's sense-decide-act loop.
//
// Three pieces cooperate:
//
//   - Scheduler: a fixed-interval ticker that advances device warm-up,
//     harvests raised trigger flags into one batch per tick, and asks the
//     decision service what to do.
//   - Reconciler: validates the returned actions against each device's
//     parameter shape and readiness, applies the survivors atomically per
//     device, and fans the result out to the param store, the WebSocket
//     hub, and telemetry.
//   - Orchestrator: the composition point. It builds the device registry,
//     sends the initial full-state report, runs the scheduler, and offers
//     the HTTP layer a small facade (Snapshot, Submit, UserInfo).
//
// The loop is loss-tolerant on purpose: a decision outage, a dropped
// action, or a store timeout costs at most one cycle or one durable write.
// Device trigger flags re-raise on the next real change, so the system
// converges without retries or queues.
//
// # Thread Safety
//
// The scheduler runs in a single goroutine; the reconciler may also be
// entered concurrently by the HTTP control endpoint. Per-device atomicity
// is guaranteed by the registry, not here.
package automation
