package types

// Outbound command kinds sent to the terminal surface.
const (
	CmdExtractScrollback = "extractScrollbackData"
	CmdRestoreSessions   = "restoreTerminalSessions"
	CmdRestoreScrollback = "restoreTerminalScrollback"
)

// Inbound event kinds received from the terminal surface.
const (
	EventScrollbackPushed    = "scrollback-pushed"
	EventScrollbackCollected = "scrollback-collected"
	EventTerminalReady       = "terminal-ready"
	EventRefreshRequested    = "scrollback-refresh-requested"
)

// OutboundMessage is the single wire shape posted to the terminal surface.
// Fields are populated per command kind; unused fields are omitted.
type OutboundMessage struct {
	Command           string         `json:"command"`
	TerminalID        string         `json:"terminalId,omitempty"`
	RequestID         string         `json:"requestId,omitempty"`
	MaxLines          int            `json:"maxLines,omitempty"`
	Terminals         []RestoreEntry `json:"terminals,omitempty"`
	ScrollbackContent []string       `json:"scrollbackContent,omitempty"`
	IsRefresh         bool           `json:"isRefresh,omitempty"`
}

// RestoreEntry carries one terminal's scrollback in a batched
// restoreTerminalSessions message.
type RestoreEntry struct {
	TerminalID        string   `json:"terminalId"`
	ScrollbackData    []string `json:"scrollbackData"`
	RestoreScrollback bool     `json:"restoreScrollback"`
	Progressive       bool     `json:"progressive"`
}

// InboundEvent is a message received from the terminal surface. Which
// fields are set depends on Type; unknown request ids are ignored by the
// handlers.
type InboundEvent struct {
	Type        string            `json:"type"`
	TerminalID  string            `json:"terminalId,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
	Scrollback  ScrollbackPayload `json:"scrollbackData,omitempty"`
	TerminalIDs []string          `json:"terminalIds,omitempty"`
}
