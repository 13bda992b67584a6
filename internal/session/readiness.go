package session

import (
	"context"
	"sync"
	"time"
)

// DefaultReadinessTimeout bounds how long a restore batch waits for newly
// created terminals to signal ready.
const DefaultReadinessTimeout = 3 * time.Second

type readinessWait struct {
	remaining map[string]struct{}
	done      chan struct{}
	closed    bool
}

// ReadinessGate tracks which newly created terminals have signaled ready.
// Waits resolve when every tracked terminal reports in or when the timeout
// elapses; readiness is advisory, not a correctness precondition.
type ReadinessGate struct {
	mu     sync.Mutex
	nextID uint64
	waits  map[uint64]*readinessWait
}

// NewReadinessGate creates an empty gate.
func NewReadinessGate() *ReadinessGate {
	return &ReadinessGate{waits: make(map[uint64]*readinessWait)}
}

// Wait blocks until every id in terminalIDs has been marked ready, the
// timeout elapses, or ctx is cancelled. It always returns; the outcome is
// deliberately not reported.
func (g *ReadinessGate) Wait(ctx context.Context, terminalIDs []string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultReadinessTimeout
	}

	remaining := make(map[string]struct{}, len(terminalIDs))
	for _, id := range terminalIDs {
		if id != "" {
			remaining[id] = struct{}{}
		}
	}
	if len(remaining) == 0 {
		return
	}

	w := &readinessWait{remaining: remaining, done: make(chan struct{})}

	g.mu.Lock()
	g.nextID++
	key := g.nextID
	g.waits[key] = w
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.waits, key)
		g.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// MarkReady removes terminalID from every outstanding wait; a wait whose
// set empties completes immediately. Unknown ids are ignored.
func (g *ReadinessGate) MarkReady(terminalID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, w := range g.waits {
		if _, ok := w.remaining[terminalID]; !ok {
			continue
		}
		delete(w.remaining, terminalID)
		if len(w.remaining) == 0 && !w.closed {
			w.closed = true
			close(w.done)
		}
	}
}

// Outstanding returns the number of unresolved waits.
func (g *ReadinessGate) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waits)
}
