// Package api exposes the HTTP control surface for session persistence
// and terminal management.
//
// Endpoints:
//   - GET  /            — liveness
//   - GET  /health      — state, terminal count, surface connectivity
//   - POST /session/save            — immediate save (?cached=true for cache-only)
//   - POST /session/restore         — restore (?force=true bypasses the guard)
//   - GET  /session                 — stored record diagnostics
//   - DELETE /session               — clear the stored record
//   - GET  /terminals               — live workspace listing
//   - POST /terminals               — spawn a terminal
//   - DELETE /terminals/:id         — close a terminal
//   - POST /terminals/:id/focus     — move focus
//   - POST /terminals/:id/rename    — set display name
package api
