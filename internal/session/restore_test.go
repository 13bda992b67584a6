package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-hiraoku/termsession/internal/types"
)

func savedRecord(terminals ...types.TerminalRecord) *types.SessionRecord {
	return &types.SessionRecord{
		Terminals: terminals,
		Timestamp: time.Now().UnixMilli(),
		Version:   types.SchemaVersion,
	}
}

func TestRestoreNoSession(t *testing.T) {
	c := newTestCoordinator(testConfig(), &memStore{}, newFakeManager(), &fakeSurface{})

	res := c.Restore(context.Background(), false)

	assert.False(t, res.Success)
	assert.Equal(t, MsgNoSession, res.Message)
	assert.Equal(t, StateIdle, c.State())
}

func TestRestoreUnreadableRecord(t *testing.T) {
	st := &memStore{loadErr: errors.New("gzip: invalid header")}
	c := newTestCoordinator(testConfig(), st, newFakeManager(), &fakeSurface{})

	res := c.Restore(context.Background(), false)

	assert.False(t, res.Success)
	assert.Equal(t, MsgInvalidSession, res.Message)
}

func TestRestoreInvalidRecord(t *testing.T) {
	st := &memStore{rec: &types.SessionRecord{Version: types.SchemaVersion}}
	c := newTestCoordinator(testConfig(), st, newFakeManager(), &fakeSurface{})

	res := c.Restore(context.Background(), false)

	assert.False(t, res.Success)
	assert.Equal(t, MsgInvalidSession, res.Message)
}

func TestRestoreExpiredSessionCleared(t *testing.T) {
	rec := savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})
	rec.Timestamp = time.Now().Add(-8 * 24 * time.Hour).UnixMilli()
	st := &memStore{rec: rec}
	c := newTestCoordinator(testConfig(), st, newFakeManager(), &fakeSurface{})

	res := c.Restore(context.Background(), false)

	assert.False(t, res.Success)
	assert.Equal(t, MsgSessionExpired, res.Message)
	assert.Nil(t, st.record(), "expired record is cleared, not retried forever")
	assert.Equal(t, 1, st.clears)
}

func TestRestoreGuardedByLiveTerminals(t *testing.T) {
	st := &memStore{rec: savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})}
	mgr := newFakeManager(types.TerminalInfo{ID: "live1"})
	c := newTestCoordinator(testConfig(), st, mgr, &fakeSurface{})

	res := c.Restore(context.Background(), false)

	assert.False(t, res.Success)
	assert.Equal(t, MsgTerminalsExist, res.Message)
	assert.True(t, IsRestoreGuard(res.Message))
	assert.Len(t, mgr.GetTerminals(), 1, "guard must not create anything")
	assert.Equal(t, StateIdle, c.State())
}

func TestRestoreForceBypassesGuard(t *testing.T) {
	st := &memStore{rec: savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})}
	mgr := newFakeManager(types.TerminalInfo{ID: "live1"})
	c := newTestCoordinator(testConfig(), st, mgr, &fakeSurface{})

	go markAllReady(c, mgr)
	res := c.Restore(context.Background(), true)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RestoredCount)
}

// markAllReady simulates surface terminal-ready events for every terminal
// the manager creates during a restore.
func markAllReady(c *Coordinator, mgr *fakeManager) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, info := range mgr.GetTerminals() {
			c.HandleTerminalReady(info.ID)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	active := "t2"
	rec := savedRecord(
		types.TerminalRecord{ID: "t1", Name: "build", Number: 1, Cwd: "/src", IndicatorColor: "#00ff00"},
		types.TerminalRecord{ID: "t2", Name: "logs", Number: 2, Cwd: "/var/log"},
	)
	rec.ActiveTerminalID = &active
	rec.Scrollback = map[string]types.ScrollbackPayload{
		"t1": types.NewScrollback([]string{"$ make", "ok"}),
	}
	st := &memStore{rec: rec}
	mgr := newFakeManager()
	surface := &fakeSurface{}
	c := newTestCoordinator(testConfig(), st, mgr, surface)

	go markAllReady(c, mgr)
	res := c.Restore(context.Background(), false)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.RestoredCount)
	assert.Zero(t, res.SkippedCount)

	infos := mgr.GetTerminals()
	require.Len(t, infos, 2)
	assert.Equal(t, "build", infos[0].Name)
	assert.Equal(t, "/src", infos[0].Cwd)
	assert.Equal(t, "#00ff00", infos[0].IndicatorColor)
	assert.Equal(t, "logs", infos[1].Name)
	assert.Equal(t, "/var/log", infos[1].Cwd)

	// Focus follows the saved active terminal's recreated counterpart.
	assert.Equal(t, infos[1].ID, mgr.GetActiveTerminalID())

	// Saved order is reasserted after concurrent creation.
	require.Len(t, mgr.reorders, 1)
	assert.Equal(t, []string{infos[0].ID, infos[1].ID}, mgr.reorders[0])
}

func TestRestoreReplaysScrollbackInOneBatch(t *testing.T) {
	rec := savedRecord(
		types.TerminalRecord{ID: "t1", Name: "a"},
		types.TerminalRecord{ID: "t2", Name: "b"},
		types.TerminalRecord{ID: "t3", Name: "c"},
	)
	long := make([]string, MaxScrollbackLines+10)
	for i := range long {
		long[i] = "line"
	}
	rec.Scrollback = map[string]types.ScrollbackPayload{
		"t1": types.NewScrollback([]string{"short"}),
		"t3": types.NewScrollback(long),
	}
	st := &memStore{rec: rec}
	mgr := newFakeManager()
	surface := &fakeSurface{}
	c := newTestCoordinator(testConfig(), st, mgr, surface)

	go markAllReady(c, mgr)
	res := c.Restore(context.Background(), false)
	require.True(t, res.Success)

	batches := surface.messagesOf(types.CmdRestoreSessions)
	require.Len(t, batches, 1, "scrollback replay is one batched message")
	entries := batches[0].Terminals
	require.Len(t, entries, 2, "terminals without scrollback are omitted")

	byLines := map[int]types.RestoreEntry{}
	for _, e := range entries {
		byLines[len(e.ScrollbackData)] = e
	}
	assert.False(t, byLines[1].Progressive)
	assert.True(t, byLines[len(long)].Progressive, "large payloads request progressive replay")
	for _, e := range entries {
		assert.True(t, e.RestoreScrollback)
		cached, ok := c.cache.Get(e.TerminalID)
		assert.True(t, ok, "replayed lines are seeded into the cache")
		assert.Len(t, cached, len(e.ScrollbackData))
	}
}

func TestRestoreLegacyScrollbackString(t *testing.T) {
	rec := savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})
	rec.Scrollback = map[string]types.ScrollbackPayload{
		"t1": {Raw: "first\nsecond\nthird", Legacy: true},
	}
	st := &memStore{rec: rec}
	mgr := newFakeManager()
	surface := &fakeSurface{}
	c := newTestCoordinator(testConfig(), st, mgr, surface)

	go markAllReady(c, mgr)
	res := c.Restore(context.Background(), false)
	require.True(t, res.Success)

	batches := surface.messagesOf(types.CmdRestoreSessions)
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Terminals, 1)
	assert.Equal(t, []string{"first", "second", "third"}, batches[0].Terminals[0].ScrollbackData)
}

func TestRestorePartialCreationFailureTolerated(t *testing.T) {
	rec := savedRecord(
		types.TerminalRecord{ID: "t1", Name: "a"},
		types.TerminalRecord{ID: "t2", Name: "b"},
	)
	st := &memStore{rec: rec}
	mgr := newFakeManager()
	// First creation succeeds, the rest fail.
	calls := 0
	mgr.createHook = func() error {
		calls++
		if calls > 1 {
			return errors.New("pty allocation failed")
		}
		return nil
	}
	c := newTestCoordinator(testConfig(), st, mgr, &fakeSurface{})

	go markAllReady(c, mgr)
	res := c.Restore(context.Background(), false)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RestoredCount)
	assert.Equal(t, 1, res.SkippedCount)
}

func TestRestoreTotalCreationFailure(t *testing.T) {
	rec := savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})
	st := &memStore{rec: rec}
	mgr := newFakeManager()
	mgr.createErr = errors.New("pty allocation failed")
	c := newTestCoordinator(testConfig(), st, mgr, &fakeSurface{})

	res := c.Restore(context.Background(), false)

	assert.False(t, res.Success)
	assert.Equal(t, MsgRestoreFailed, res.Message)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, StateIdle, c.State())
}

func TestRestoreGracePeriodThenIdle(t *testing.T) {
	st := &memStore{rec: savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})}
	mgr := newFakeManager()
	c := newTestCoordinator(testConfig(), st, mgr, &fakeSurface{})

	go markAllReady(c, mgr)
	res := c.Restore(context.Background(), false)
	require.True(t, res.Success)

	assert.Equal(t, StateRestoringGrace, c.State())

	// During grace, auto-saves are suppressed.
	save := c.Save(context.Background(), SaveOptions{PreferCache: true})
	assert.True(t, save.Success)
	assert.Zero(t, save.TerminalCount)
	assert.Zero(t, st.saveCount())

	require.Eventually(t, func() bool {
		return c.State() == StateIdle
	}, time.Second, 5*time.Millisecond, "grace timer returns the lifecycle to idle")
}

func TestRestoreProceedsWhenReadinessTimesOut(t *testing.T) {
	st := &memStore{rec: savedRecord(types.TerminalRecord{ID: "t1", Name: "a"})}
	mgr := newFakeManager()
	c := newTestCoordinator(testConfig(), st, mgr, &fakeSurface{})

	// No ready events ever arrive; restore still completes after the gate
	// times out.
	start := time.Now()
	res := c.Restore(context.Background(), false)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RestoredCount)
	assert.GreaterOrEqual(t, time.Since(start), testConfig().ReadinessTimeout)
}
