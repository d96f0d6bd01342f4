// Package store implements the durable parameter store for Orii Core.
//
// Device plugins that declare a persistence key have their present-state
// written here after every applied action, and read back at registration so
// state survives restarts. The user profile document is kept under its own
// key, independent of any device.
//
// # Serialization
//
// The store is treated as a resource that does not support concurrent
// access: one operation is in flight at a time, process-wide. Waiters are
// bounded: after the configured wait an operation fails with ErrBusy, a
// soft error the caller logs and survives.
//
// # Failure policy
//
// No store error is fatal. A failed write means the live in-memory state
// stands but is not durable; a failed read at registration means the device
// keeps its defaults.
package store
