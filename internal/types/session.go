package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SchemaVersion identifies the current persisted record format.
const SchemaVersion = "2.0"

// SessionRecord is the single durable unit describing a workspace at last save.
// Exactly one record exists per workspace; last write wins.
type SessionRecord struct {
	Terminals        []TerminalRecord             `json:"terminals"`
	ActiveTerminalID *string                      `json:"activeTerminalId,omitempty"`
	Timestamp        int64                        `json:"timestamp"` // epoch milliseconds
	Version          string                       `json:"version"`
	Scrollback       map[string]ScrollbackPayload `json:"scrollbackData,omitempty"`
	Config           ConfigSnapshot               `json:"config"`
}

// TerminalRecord captures one persisted terminal.
type TerminalRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Number         int    `json:"number"` // 1-based display order
	Cwd            string `json:"cwd"`
	IsActive       bool   `json:"isActive"`
	CliAgentType   string `json:"cliAgentType,omitempty"`
	IndicatorColor string `json:"indicatorColor,omitempty"`
}

// ConfigSnapshot records the persistence settings in effect at save time.
type ConfigSnapshot struct {
	ScrollbackLines int    `json:"scrollbackLines"`
	RevivePolicy    string `json:"revivePolicy"`
}

// Validate performs the structural checks a record must pass before restore.
func (r *SessionRecord) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}
	if r.Terminals == nil {
		return errors.New("terminals is not a sequence")
	}
	if r.Timestamp <= 0 {
		return errors.New("timestamp is not numeric")
	}
	if r.Version == "" {
		return errors.New("version is not a string")
	}
	return nil
}

// Age returns how old the record is relative to now.
func (r *SessionRecord) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(r.Timestamp))
}

// ScrollbackPayload holds the scrollback of one terminal. On the wire it is
// either a sequence of lines or a legacy single string; the union is kept
// in memory so size optimization can treat each form on its own terms.
type ScrollbackPayload struct {
	Lines  []string
	Raw    string
	Legacy bool
}

// NewScrollback wraps a line sequence in the canonical payload form.
func NewScrollback(lines []string) ScrollbackPayload {
	return ScrollbackPayload{Lines: lines}
}

// Normalized returns the payload as a line sequence, splitting legacy
// single-string payloads on newline.
func (p ScrollbackPayload) Normalized() []string {
	if p.Legacy {
		if p.Raw == "" {
			return nil
		}
		return strings.Split(p.Raw, "\n")
	}
	return p.Lines
}

// IsEmpty reports whether the payload carries no text.
func (p ScrollbackPayload) IsEmpty() bool {
	if p.Legacy {
		return p.Raw == ""
	}
	return len(p.Lines) == 0
}

// LineCount returns the number of lines the payload would restore to.
func (p ScrollbackPayload) LineCount() int {
	return len(p.Normalized())
}

// MarshalJSON emits the line-array form for canonical payloads and the
// original string for legacy payloads that were never rewritten.
func (p ScrollbackPayload) MarshalJSON() ([]byte, error) {
	if p.Legacy {
		return json.Marshal(p.Raw)
	}
	if p.Lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Lines)
}

// UnmarshalJSON accepts both the line-array form and the legacy single
// string form.
func (p *ScrollbackPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = ScrollbackPayload{}
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*p = ScrollbackPayload{Raw: raw, Legacy: true}
		return nil
	}
	var lines []string
	if err := json.Unmarshal(trimmed, &lines); err != nil {
		return err
	}
	*p = ScrollbackPayload{Lines: lines}
	return nil
}
