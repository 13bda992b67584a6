package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/types"
)

// SaveOptions controls one save operation.
type SaveOptions struct {
	// PreferCache skips live extraction and serves scrollback from the
	// cache only. Used for shutdown-time saves, where the terminal surface
	// may already be gone and a round trip would stall process exit.
	PreferCache bool
}

// Save builds a session record from live terminal state plus cached or
// freshly extracted scrollback, optimizes it if it approaches the storage
// limit, and writes it to the durable slot.
//
// Saves during a restore window are suppressed: the record on disk still
// describes data being reconstructed, and overwriting it would lose the
// very state being restored.
func (c *Coordinator) Save(ctx context.Context, opts SaveOptions) types.SaveResult {
	switch c.State() {
	case StateRestoring, StateRestoringGrace:
		return types.SaveResult{Success: true, TerminalCount: 0}
	}
	if !c.cfg.Enabled {
		return types.SaveResult{Success: true, TerminalCount: 0}
	}

	infos := c.terminals.GetTerminals()
	if len(infos) == 0 {
		return types.SaveResult{Success: true, TerminalCount: 0}
	}

	c.compareAndSetState(StateIdle, StateSaving)
	defer c.compareAndSetState(StateSaving, StateIdle)

	activeID := c.terminals.GetActiveTerminalID()

	records := make([]types.TerminalRecord, 0, len(infos))
	scrollback := make(map[string]types.ScrollbackPayload)
	for i, info := range infos {
		name := info.Name
		if name == "" {
			name = fmt.Sprintf("Terminal %d", i+1)
		}
		records = append(records, types.TerminalRecord{
			ID:             info.ID,
			Name:           name,
			Number:         i + 1,
			Cwd:            info.Cwd,
			IsActive:       activeID != "" && info.ID == activeID,
			CliAgentType:   info.CliAgentType,
			IndicatorColor: info.IndicatorColor,
		})

		lines := c.collectScrollback(ctx, info.ID, opts.PreferCache)
		if len(lines) > 0 {
			scrollback[info.ID] = types.NewScrollback(lines)
		}
	}

	rec := &types.SessionRecord{
		Terminals: records,
		Timestamp: c.now().UnixMilli(),
		Version:   types.SchemaVersion,
		Config: types.ConfigSnapshot{
			ScrollbackLines: c.cfg.ScrollbackLines,
			RevivePolicy:    c.cfg.RevivePolicy,
		},
	}
	if activeID != "" {
		rec.ActiveTerminalID = &activeID
	}
	if len(scrollback) > 0 {
		rec.Scrollback = scrollback
	}

	usage := c.optimizer.IsOverLimit(rec)
	if c.optimizer.NeedsOptimization(usage) {
		c.log.Info("optimizing session record before save",
			zap.Int("size_bytes", usage.SizeBytes),
			zap.Float64("percent_used", usage.PercentUsed))
		rec = c.optimizer.Optimize(rec)
		usage = c.optimizer.IsOverLimit(rec)
	}

	if err := c.store.Save(rec); err != nil {
		c.metrics.RecordSave(false, 0)
		c.log.Error("session save failed", zap.Error(err))
		return types.SaveResult{Success: false, Message: err.Error()}
	}

	c.metrics.RecordSave(true, usage.SizeBytes)
	c.log.Debug("session saved",
		zap.Int("terminals", len(records)),
		zap.Int("size_bytes", usage.SizeBytes),
		zap.Bool("prefer_cache", opts.PreferCache))
	return types.SaveResult{Success: true, TerminalCount: len(records)}
}

// collectScrollback resolves one terminal's scrollback. The cache-only
// path never touches the surface; the extraction path falls back to the
// cache when the surface is slow or unresponsive.
func (c *Coordinator) collectScrollback(ctx context.Context, terminalID string, preferCache bool) []string {
	if preferCache {
		lines, _ := c.cache.Get(terminalID)
		return lines
	}
	if lines := c.extractor.Request(ctx, terminalID, c.cfg.ScrollbackLines); len(lines) > 0 {
		return lines
	}
	lines, _ := c.cache.Get(terminalID)
	return lines
}
