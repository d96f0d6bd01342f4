// Package api implements the HTTP REST API and WebSocket server for Orii Core.
//
// This package provides:
//   - REST endpoints for the device roster, manual control, and the
//     household profile
//   - History queries backed by the telemetry store
//   - WebSocket hub for real-time state and readiness broadcasts
//   - Shared-secret and token authentication on mutating routes
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between wall panels or companion apps and the
// orchestrator. Reads come straight from the device registry snapshot;
// writes go through the same reconciliation path the decision service's
// actions take, so a manual update obeys warm-up gating and shape
// validation exactly like an automated one. Applied changes fan out to
// WebSocket clients through the hub.
//
// # Security
//
// Mutating routes accept the shared secret in the X-Orii-Key header or a
// short-lived token from POST /auth/login. The WebSocket route takes
// either credential in the token query parameter.
//
// # Graceful Degradation
//
// The server operates without telemetry: history queries return 404 and
// everything else keeps working.
package api
