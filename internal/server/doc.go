// Package server implements the core WebSocket chat service: authentication
// against a fixed credential table, best-effort broadcast to all live
// sessions, per-user rate limiting, and file sharing.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, the file store, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
