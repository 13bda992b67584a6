package types

// SaveResult reports the outcome of a save operation.
type SaveResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	TerminalCount int    `json:"terminalCount"`
}

// RestoreResult reports the outcome of a restore operation.
type RestoreResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	RestoredCount int    `json:"restoredCount"`
	SkippedCount  int    `json:"skippedCount"`
}

// SessionInfo is the read-only diagnostic view of the persisted record.
type SessionInfo struct {
	Exists        bool    `json:"exists"`
	TerminalCount int     `json:"terminalCount"`
	Timestamp     int64   `json:"timestamp,omitempty"`
	Version       string  `json:"version,omitempty"`
	AgeMS         int64   `json:"ageMs,omitempty"`
	SizeBytes     int     `json:"sizeBytes,omitempty"`
	PercentUsed   float64 `json:"percentUsed,omitempty"`
}
