// Package bridge owns the WebSocket link to the terminal surface.
//
// The surface is the UI process that renders terminals. It connects once
// and stays connected; a reconnect replaces the previous link. Outbound
// messages carry extraction requests and scrollback replays, inbound
// events carry scrollback pushes, extraction responses, readiness
// signals and refresh requests.
//
// Message Types (Server → Surface):
//   - extractScrollbackData: request a terminal's scrollback
//   - restoreTerminalSessions: batched scrollback replay after restore
//   - restoreTerminalScrollback: single-terminal refresh replay
//
// Message Types (Surface → Server):
//   - scrollback-pushed: unsolicited scrollback update
//   - scrollback-collected: extraction response
//   - terminal-ready: restored terminal finished initializing
//   - scrollback-refresh-requested: surface wants cached lines again
package bridge
