// Package session implements the persistence and scrollback
// synchronization engine for a multi-terminal workspace.
//
// The Coordinator owns all per-workspace persistence state and reconciles
// a durable session record with a live, asynchronous terminal surface that
// may be slow, partially unavailable, or temporarily unresponsive.
//
// Components:
//   - ScrollbackCache: last-known-good scrollback per terminal
//   - ExtractionCorrelator: request/response matching by request id
//   - ReadinessGate: advisory waits for newly created terminals
//   - Optimizer: storage-size-aware scrollback truncation
//   - Coordinator.Save / Coordinator.Restore: the orchestrators
//   - Scheduler: periodic, debounced, and immediate auto-save triggers
//
// Lifecycle:
//
//	Idle → Saving → Idle
//	Idle → Restoring → RestoringGrace → Idle
//
// Saves observed during a restore window are suppressed; the grace period
// after a successful restore keeps auto-save from clobbering freshly
// restored scrollback. All asynchronous waits resolve on timeout rather
// than failing: extraction falls back to the cache, readiness is advisory.
//
// Example Usage:
//
//	coord := session.NewCoordinator(session.Options{
//		Config:    cfg.Session,
//		Store:     store,
//		Terminals: manager,
//		Surface:   bridge,
//		Logger:    log,
//	})
//	sched := session.NewScheduler(coord, cfg.Autosave, log)
//	coord.SetScheduler(sched)
//	sched.Start()
package session
