package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/logging"
	"github.com/s-hiraoku/termsession/internal/monitoring"
	"github.com/s-hiraoku/termsession/internal/shared/id"
	"github.com/s-hiraoku/termsession/internal/types"
)

// DefaultExtractionTimeout bounds how long a scrollback extraction waits
// for the terminal surface to respond.
const DefaultExtractionTimeout = 2 * time.Second

// pendingExtraction tracks one in-flight extraction request until it is
// resolved by a matching response or abandoned on timeout.
type pendingExtraction struct {
	terminalID string
	ch         chan []string
}

// ExtractionCorrelator matches asynchronous extraction responses to pending
// requests via request ids. Timeouts resolve to an empty sequence rather
// than an error; callers fall back to the scrollback cache.
type ExtractionCorrelator struct {
	surface Surface
	cache   *ScrollbackCache
	timeout time.Duration
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	pending map[string]*pendingExtraction
}

// NewExtractionCorrelator creates a correlator posting through surface and
// feeding resolved scrollback into cache. A non-positive timeout selects
// DefaultExtractionTimeout; metrics may be nil.
func NewExtractionCorrelator(surface Surface, cache *ScrollbackCache, timeout time.Duration, log *logging.Logger, metrics *monitoring.Metrics) *ExtractionCorrelator {
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &ExtractionCorrelator{
		surface: surface,
		cache:   cache,
		timeout: timeout,
		log:     log,
		metrics: metrics,
		pending: make(map[string]*pendingExtraction),
	}
}

// Request asks the terminal surface for up to maxLines of scrollback and
// blocks until the matching response arrives or the timeout elapses. A
// timeout returns nil; it is an accepted degradation, never an error.
func (e *ExtractionCorrelator) Request(ctx context.Context, terminalID string, maxLines int) []string {
	requestID := id.NewRequestID().String()
	ch := make(chan []string, 1)

	e.mu.Lock()
	e.pending[requestID] = &pendingExtraction{terminalID: terminalID, ch: ch}
	e.mu.Unlock()

	msg := types.OutboundMessage{
		Command:    types.CmdExtractScrollback,
		TerminalID: terminalID,
		RequestID:  requestID,
		MaxLines:   maxLines,
	}
	if err := e.surface.Post(ctx, msg); err != nil {
		e.drop(requestID)
		e.log.Debug("extraction request not delivered",
			zap.String("terminal_id", terminalID), zap.Error(err))
		return nil
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case lines := <-ch:
		return lines
	case <-timer.C:
		e.drop(requestID)
		e.metrics.RecordExtractionTimeout()
		e.log.Debug("extraction timed out",
			zap.String("terminal_id", terminalID), zap.String("request_id", requestID))
		return nil
	case <-ctx.Done():
		e.drop(requestID)
		return nil
	}
}

// Resolve completes the pending request for requestID and refreshes the
// cache when the response carries data. Responses for unknown request ids
// (late arrivals after a timeout) are ignored.
func (e *ExtractionCorrelator) Resolve(requestID string, lines []string) {
	e.mu.Lock()
	p, ok := e.pending[requestID]
	delete(e.pending, requestID)
	e.mu.Unlock()
	if !ok {
		return
	}

	if len(lines) > 0 && e.cache != nil {
		e.cache.Set(p.terminalID, lines)
	}
	p.ch <- lines
}

// PendingCount returns the number of in-flight requests.
func (e *ExtractionCorrelator) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *ExtractionCorrelator) drop(requestID string) {
	e.mu.Lock()
	delete(e.pending, requestID)
	e.mu.Unlock()
}
