// Package terminal manages the workspace's PTY-backed shell terminals.
//
// Each terminal spawns a shell process attached to a pseudo-terminal,
// buffers its output in a fixed-size ring, and carries the display
// metadata the workspace tracks: name, working directory, CLI agent
// indicator, and position in the tab order. The manager keeps the
// ordered set with at most one active terminal and reports topology
// changes (create, exit, close) to an attached notifier.
//
// Features:
//   - PTY support via creack/pty for full terminal semantics
//   - Ring-buffered output draining
//   - Terminal resizing
//   - Ordered workspace with a single focused terminal
//   - Working directory control, with fallback when a saved
//     directory no longer exists
package terminal
