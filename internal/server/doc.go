// Package server wires the persistence engine together: the bbolt
// session store, the PTY terminal manager, the WebSocket surface bridge,
// the session coordinator with its auto-save scheduler, and the gin HTTP
// API with Prometheus metrics.
//
// Shutdown runs one final cache-backed save before terminals are killed,
// so a window close or process exit never loses the workspace.
package server
