package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/config"
	"github.com/s-hiraoku/termsession/internal/logging"
	"github.com/s-hiraoku/termsession/internal/monitoring"
	"github.com/s-hiraoku/termsession/internal/types"
)

// Manager is the live terminal collaborator surface the orchestrators
// depend on. The PTY-backed implementation lives in internal/terminal;
// tests substitute fakes.
type Manager interface {
	GetTerminals() []types.TerminalInfo
	GetActiveTerminalID() string
	CreateTerminal(ctx context.Context) (string, error)
	RenameTerminal(id, name string) error
	UpdateTerminalHeader(id string, update types.HeaderUpdate) error
	SetActiveTerminal(id string) error
	ReorderTerminals(ids []string) error
}

// Surface posts messages to the terminal surface process. Delivery is
// best-effort; the engine degrades rather than retries.
type Surface interface {
	Post(ctx context.Context, msg types.OutboundMessage) error
}

// Store is the durable workspace-scoped session slot.
type Store interface {
	Load() (*types.SessionRecord, error)
	Save(rec *types.SessionRecord) error
	Clear() error
}

// State is the coordinator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateSaving
	StateRestoring
	StateRestoringGrace
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateRestoring:
		return "restoring"
	case StateRestoringGrace:
		return "restoring-grace"
	default:
		return "unknown"
	}
}

// Options configures a Coordinator.
type Options struct {
	Config    config.SessionConfig
	Store     Store
	Terminals Manager
	Surface   Surface
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
	Now       func() time.Time // test hook; defaults to time.Now
}

// Coordinator owns one workspace's persistence state: the scrollback
// cache, the pending-extraction map, the readiness wait sets and the
// lifecycle state. All maps are owned exclusively by this object.
type Coordinator struct {
	cfg       config.SessionConfig
	store     Store
	terminals Manager
	surface   Surface
	cache     *ScrollbackCache
	extractor *ExtractionCorrelator
	readiness *ReadinessGate
	optimizer *Optimizer
	log       *logging.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time

	scheduler *Scheduler

	mu         sync.Mutex
	state      State
	graceTimer *time.Timer
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cache := NewScrollbackCache()
	return &Coordinator{
		cfg:       opts.Config,
		store:     opts.Store,
		terminals: opts.Terminals,
		surface:   opts.Surface,
		cache:     cache,
		extractor: NewExtractionCorrelator(opts.Surface, cache, opts.Config.ExtractionTimeout, log, opts.Metrics),
		readiness: NewReadinessGate(),
		optimizer: NewOptimizer(opts.Config.StorageLimitMB),
		log:       log.WithComponent("session"),
		metrics:   opts.Metrics,
		now:       now,
		state:     StateIdle,
	}
}

// SetScheduler attaches the auto-save scheduler so inbound events can feed
// its triggers.
func (c *Coordinator) SetScheduler(s *Scheduler) {
	c.scheduler = s
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// compareAndSetState transitions from want to next; returns false if the
// current state is not want.
func (c *Coordinator) compareAndSetState(want, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != want {
		return false
	}
	c.state = next
	return true
}

// beginRestore transitions to Restoring, cancelling any pending grace
// timer from an earlier restore.
func (c *Coordinator) beginRestore() {
	c.mu.Lock()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
	c.state = StateRestoring
	c.mu.Unlock()
}

// enterGrace transitions to RestoringGrace and schedules the return to
// Idle. The grace window keeps auto-save from clobbering freshly restored
// scrollback.
func (c *Coordinator) enterGrace() {
	c.mu.Lock()
	c.state = StateRestoringGrace
	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
	grace := c.cfg.RestoreGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	c.graceTimer = time.AfterFunc(grace, func() {
		c.mu.Lock()
		if c.state == StateRestoringGrace {
			c.state = StateIdle
		}
		c.graceTimer = nil
		c.mu.Unlock()
	})
	c.mu.Unlock()
}

// HandleScrollbackPushed records a scrollback push from the terminal
// surface and arms the debounced save trigger.
func (c *Coordinator) HandleScrollbackPushed(terminalID string, payload types.ScrollbackPayload) {
	lines := payload.Normalized()
	c.cache.Set(terminalID, lines)
	if c.scheduler != nil {
		c.scheduler.NotifyScrollback()
	}
}

// HandleScrollbackCollected routes an extraction response to its pending
// request. Responses without a request id are treated as pushes.
func (c *Coordinator) HandleScrollbackCollected(terminalID, requestID string, payload types.ScrollbackPayload) {
	lines := payload.Normalized()
	if requestID == "" {
		c.cache.Set(terminalID, lines)
		return
	}
	c.extractor.Resolve(requestID, lines)
}

// HandleTerminalReady records a readiness signal for a newly created
// terminal.
func (c *Coordinator) HandleTerminalReady(terminalID string) {
	c.readiness.MarkReady(terminalID)
}

// HandleRefreshRequest answers a surface-side refresh by replaying cached
// scrollback for each requested terminal.
func (c *Coordinator) HandleRefreshRequest(ctx context.Context, terminalIDs []string) {
	for _, tid := range terminalIDs {
		lines, ok := c.cache.Get(tid)
		if !ok {
			continue
		}
		msg := types.OutboundMessage{
			Command:           types.CmdRestoreScrollback,
			TerminalID:        tid,
			ScrollbackContent: lines,
			IsRefresh:         true,
		}
		if err := c.surface.Post(ctx, msg); err != nil {
			c.log.Debug("scrollback refresh not delivered",
				zap.String("terminal_id", tid), zap.Error(err))
		}
	}
}

// HandleTerminalCreated saves immediately on topology growth.
func (c *Coordinator) HandleTerminalCreated(terminalID string) {
	if c.scheduler != nil {
		c.scheduler.NotifyTopology()
	}
}

// HandleTerminalRemoved drops the removed terminal's cache entry and saves
// immediately.
func (c *Coordinator) HandleTerminalRemoved(terminalID string) {
	c.cache.Delete(terminalID)
	if c.scheduler != nil {
		c.scheduler.NotifyTopology()
	}
}

// ClearSession removes the durable record and local caches.
func (c *Coordinator) ClearSession() error {
	c.cache.Clear()
	return c.store.Clear()
}

// SessionInfo returns the read-only diagnostic view of the stored record.
// A record may disappear between read and use; absence is not an error.
func (c *Coordinator) SessionInfo() (types.SessionInfo, error) {
	rec, err := c.store.Load()
	if err != nil {
		return types.SessionInfo{}, err
	}
	if rec == nil {
		return types.SessionInfo{}, nil
	}
	usage := c.optimizer.IsOverLimit(rec)
	return types.SessionInfo{
		Exists:        true,
		TerminalCount: len(rec.Terminals),
		Timestamp:     rec.Timestamp,
		Version:       rec.Version,
		AgeMS:         rec.Age(c.now()).Milliseconds(),
		SizeBytes:     usage.SizeBytes,
		PercentUsed:   usage.PercentUsed,
	}, nil
}

// Dispose stops timers and clears process-local state. The durable record
// is left untouched.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
	c.state = StateIdle
	c.mu.Unlock()
	c.cache.Clear()
}
