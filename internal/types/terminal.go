package types

// TerminalInfo is the live view of one terminal as reported by the
// terminal manager.
type TerminalInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Cwd            string `json:"cwd"`
	IsActive       bool   `json:"isActive"`
	IndicatorColor string `json:"indicatorColor,omitempty"`
	CliAgentType   string `json:"cliAgentType,omitempty"`
}

// HeaderUpdate carries presentation fields applied onto a live terminal.
type HeaderUpdate struct {
	IndicatorColor string `json:"indicatorColor,omitempty"`
	CliAgentType   string `json:"cliAgentType,omitempty"`
}
