package session

import (
	"encoding/json"

	"github.com/s-hiraoku/termsession/internal/types"
)

const (
	// MaxScrollbackLines caps persisted scrollback per terminal; the oldest
	// lines are dropped first.
	MaxScrollbackLines = 500

	// MaxLegacyChars caps legacy single-string scrollback payloads.
	MaxLegacyChars = 50_000

	// softLimitPercent is the usage percentage above which optimization
	// runs even though the hard limit is not yet exceeded.
	softLimitPercent = 80.0
)

// Usage reports how much of the storage budget a record consumes.
type Usage struct {
	Exceeded    bool
	PercentUsed float64
	SizeBytes   int
}

// Optimizer estimates persisted-record size against a configured limit and
// truncates scrollback deterministically to fit.
type Optimizer struct {
	limitBytes int64
}

// NewOptimizer creates an optimizer for the given storage limit in MB.
// A non-positive limit disables the size check.
func NewOptimizer(limitMB int) *Optimizer {
	return &Optimizer{limitBytes: int64(limitMB) * 1024 * 1024}
}

// EstimateSize returns the serialized size of the record in bytes.
func (o *Optimizer) EstimateSize(rec *types.SessionRecord) int {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0
	}
	return len(data)
}

// IsOverLimit checks record size against the configured limit.
func (o *Optimizer) IsOverLimit(rec *types.SessionRecord) Usage {
	size := o.EstimateSize(rec)
	if o.limitBytes <= 0 {
		return Usage{SizeBytes: size}
	}
	return Usage{
		Exceeded:    int64(size) > o.limitBytes,
		PercentUsed: float64(size) / float64(o.limitBytes) * 100,
		SizeBytes:   size,
	}
}

// NeedsOptimization reports whether a save should truncate before writing.
func (o *Optimizer) NeedsOptimization(u Usage) bool {
	return u.Exceeded || u.PercentUsed > softLimitPercent
}

// Optimize returns a copy of the record with each terminal's scrollback
// truncated to fit: line sequences keep their last MaxScrollbackLines
// lines, legacy strings keep their trailing MaxLegacyChars characters.
// Same input always yields the same truncation.
func (o *Optimizer) Optimize(rec *types.SessionRecord) *types.SessionRecord {
	if rec == nil || len(rec.Scrollback) == 0 {
		return rec
	}
	out := *rec
	out.Scrollback = make(map[string]types.ScrollbackPayload, len(rec.Scrollback))
	for id, payload := range rec.Scrollback {
		out.Scrollback[id] = truncatePayload(payload)
	}
	return &out
}

func truncatePayload(p types.ScrollbackPayload) types.ScrollbackPayload {
	if p.Legacy {
		runes := []rune(p.Raw)
		if len(runes) > MaxLegacyChars {
			p.Raw = string(runes[len(runes)-MaxLegacyChars:])
		}
		return p
	}
	if len(p.Lines) > MaxScrollbackLines {
		tail := make([]string, MaxScrollbackLines)
		copy(tail, p.Lines[len(p.Lines)-MaxScrollbackLines:])
		p.Lines = tail
	}
	return p
}
