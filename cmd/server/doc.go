// Package main is the entry point for the termsession server.
//
// The server persists a multi-terminal workspace across restarts: it
// tracks PTY-backed terminals, captures their scrollback through the
// connected surface UI, and writes compressed session records to a
// bbolt store that a later start can restore from.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8800 -store /var/lib/termsession/termsession.db
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown with a final cache-backed save
package main
