package session

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/s-hiraoku/termsession/internal/types"
)

// MaxConcurrentRestores bounds how many terminal creations a restore batch
// keeps in flight at once.
const MaxConcurrentRestores = 3

// Failure messages surfaced by Restore. Callers match on these strings
// across the command boundary, so they are fixed.
const (
	MsgNoSession      = "No session found"
	MsgInvalidSession = "Invalid session data"
	MsgSessionExpired = "Session expired"
	MsgTerminalsExist = "Terminals already exist"
	MsgRestoreFailed  = "Failed to restore terminals"
)

// Restore loads the durable record, recreates its terminals with bounded
// concurrency, waits best-effort for readiness, reorders to the saved
// order and replays scrollback in one batched surface message.
//
// The lifecycle moves to Restoring before any work and, on success, to
// RestoringGrace for a few seconds so an auto-save cannot clobber the
// freshly restored scrollback. Every early failure path returns to Idle.
func (c *Coordinator) Restore(ctx context.Context, forceRestore bool) types.RestoreResult {
	c.beginRestore()

	fail := func(msg string) types.RestoreResult {
		c.setState(StateIdle)
		c.metrics.RecordRestore(false, 0)
		return types.RestoreResult{Success: false, Message: msg}
	}

	rec, err := c.store.Load()
	if err != nil {
		c.log.Warn("session record unreadable", zap.Error(err))
		return fail(MsgInvalidSession)
	}
	if rec == nil {
		return fail(MsgNoSession)
	}
	if err := rec.Validate(); err != nil {
		c.log.Warn("session record invalid", zap.Error(err))
		return fail(MsgInvalidSession)
	}

	if c.cfg.ExpiryDays > 0 {
		expiry := time.Duration(c.cfg.ExpiryDays) * 24 * time.Hour
		if rec.Age(c.now()) > expiry {
			if err := c.store.Clear(); err != nil {
				c.log.Warn("failed to clear expired session", zap.Error(err))
			}
			return fail(MsgSessionExpired)
		}
	}

	if !forceRestore && len(c.terminals.GetTerminals()) > 0 {
		return fail(MsgTerminalsExist)
	}

	// Recreate terminals. newIDs is indexed like rec.Terminals; an empty
	// slot marks a terminal that failed to create. Partial failure is
	// tolerated, total failure is not.
	newIDs := make([]string, len(rec.Terminals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentRestores)
	for i := range rec.Terminals {
		tr := rec.Terminals[i]
		idx := i
		g.Go(func() error {
			newID, err := c.createTerminal(gctx, tr)
			if err != nil {
				c.log.Warn("terminal creation failed during restore",
					zap.String("saved_id", tr.ID), zap.Error(err))
				return nil
			}
			if tr.Name != "" {
				if err := c.terminals.RenameTerminal(newID, tr.Name); err != nil {
					c.log.Debug("rename failed", zap.String("terminal_id", newID), zap.Error(err))
				}
			}
			if tr.IndicatorColor != "" || tr.CliAgentType != "" {
				update := types.HeaderUpdate{
					IndicatorColor: tr.IndicatorColor,
					CliAgentType:   tr.CliAgentType,
				}
				if err := c.terminals.UpdateTerminalHeader(newID, update); err != nil {
					c.log.Debug("header update failed", zap.String("terminal_id", newID), zap.Error(err))
				}
			}
			newIDs[idx] = newID
			return nil
		})
	}
	_ = g.Wait()

	restored := 0
	created := make([]string, 0, len(newIDs))
	for _, id := range newIDs {
		if id != "" {
			restored++
			created = append(created, id)
		}
	}
	skipped := len(rec.Terminals) - restored
	if restored == 0 && len(rec.Terminals) > 0 {
		res := fail(MsgRestoreFailed)
		res.SkippedCount = skipped
		return res
	}

	// Readiness is advisory: proceed either way once the gate resolves.
	c.readiness.Wait(ctx, created, c.cfg.ReadinessTimeout)

	if err := c.terminals.ReorderTerminals(created); err != nil {
		c.log.Debug("reorder failed", zap.Error(err))
	}

	c.applyActiveTerminal(rec, newIDs)
	c.replayScrollback(ctx, rec, newIDs)

	c.enterGrace()
	c.metrics.RecordRestore(true, restored)
	c.log.Info("session restored",
		zap.Int("restored", restored), zap.Int("skipped", skipped))
	return types.RestoreResult{Success: true, RestoredCount: restored, SkippedCount: skipped}
}

// createTerminal recreates one terminal, steering it to the saved working
// directory when the manager supports that.
func (c *Coordinator) createTerminal(ctx context.Context, tr types.TerminalRecord) (string, error) {
	if creator, ok := c.terminals.(interface {
		CreateTerminalAt(ctx context.Context, cwd string) (string, error)
	}); ok && tr.Cwd != "" {
		return creator.CreateTerminalAt(ctx, tr.Cwd)
	}
	return c.terminals.CreateTerminal(ctx)
}

// applyActiveTerminal focuses the recreated counterpart of the saved
// active terminal. The explicit ActiveTerminalID wins; the per-record
// IsActive flag is the fallback.
func (c *Coordinator) applyActiveTerminal(rec *types.SessionRecord, newIDs []string) {
	target := ""
	for i, tr := range rec.Terminals {
		if newIDs[i] == "" {
			continue
		}
		if rec.ActiveTerminalID != nil && tr.ID == *rec.ActiveTerminalID {
			target = newIDs[i]
			break
		}
		if target == "" && tr.IsActive {
			target = newIDs[i]
		}
	}
	if target == "" {
		return
	}
	if err := c.terminals.SetActiveTerminal(target); err != nil {
		c.log.Debug("set active failed", zap.String("terminal_id", target), zap.Error(err))
	}
}

// replayScrollback sends one batched restore message covering every
// recreated terminal that has scrollback data, seeding the cache as the
// safety net for later refreshes.
func (c *Coordinator) replayScrollback(ctx context.Context, rec *types.SessionRecord, newIDs []string) {
	if len(rec.Scrollback) == 0 {
		return
	}
	entries := make([]types.RestoreEntry, 0, len(rec.Terminals))
	for i, tr := range rec.Terminals {
		if newIDs[i] == "" {
			continue
		}
		payload, ok := rec.Scrollback[tr.ID]
		if !ok || payload.IsEmpty() {
			continue
		}
		lines := payload.Normalized()
		c.cache.Set(newIDs[i], lines)
		entries = append(entries, types.RestoreEntry{
			TerminalID:        newIDs[i],
			ScrollbackData:    lines,
			RestoreScrollback: true,
			Progressive:       len(lines) > MaxScrollbackLines,
		})
	}
	if len(entries) == 0 {
		return
	}
	msg := types.OutboundMessage{Command: types.CmdRestoreSessions, Terminals: entries}
	if err := c.surface.Post(ctx, msg); err != nil {
		// Scrollback replay is best-effort; the cache still holds the
		// lines for a later refresh request.
		c.log.Warn("scrollback replay not delivered", zap.Error(err))
	}
}

// IsRestoreGuard reports whether the failure message is a guard outcome
// rather than a true failure.
func IsRestoreGuard(msg string) bool {
	return msg == MsgTerminalsExist
}
