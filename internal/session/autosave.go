package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/config"
	"github.com/s-hiraoku/termsession/internal/logging"
)

// Scheduler drives the auto-save triggers: a periodic full save, a
// debounced save coalescing bursts of scrollback pushes, and an immediate
// save on topology changes. Every trigger forwards only while the
// coordinator is Idle; background failures are logged, never surfaced.
type Scheduler struct {
	coord    *Coordinator
	periodic time.Duration
	debounce time.Duration
	log      *logging.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
	ticker        *time.Ticker
	stopCh        chan struct{}
	running       bool
}

// NewScheduler creates a scheduler bound to the coordinator. Non-positive
// intervals fall back to the defaults (5m periodic, 2s debounce).
func NewScheduler(coord *Coordinator, cfg config.AutosaveConfig, log *logging.Logger) *Scheduler {
	periodic := cfg.PeriodicInterval
	if periodic <= 0 {
		periodic = 5 * time.Minute
	}
	debounce := cfg.DebounceInterval
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{
		coord:    coord,
		periodic: periodic,
		debounce: debounce,
		log:      log.WithComponent("autosave"),
	}
}

// Start launches the periodic trigger. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.periodic)
	s.stopCh = make(chan struct{})
	ticker, stopCh := s.ticker, s.stopCh
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				s.saveIfIdle(SaveOptions{PreferCache: false}, "periodic")
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop cancels the periodic and any armed debounce trigger. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stopCh)
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

// NotifyScrollback resets the debounce window; when the window finally
// elapses one cache-backed save runs for the whole burst.
func (s *Scheduler) NotifyScrollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		s.saveIfIdle(SaveOptions{PreferCache: true}, "debounce")
	})
}

// NotifyTopology saves immediately: terminal creation/removal must not be
// lost even if no scrollback push ever arrives.
func (s *Scheduler) NotifyTopology() {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return
	}
	go s.saveIfIdle(SaveOptions{PreferCache: false}, "topology")
}

func (s *Scheduler) saveIfIdle(opts SaveOptions, trigger string) {
	if s.coord.State() != StateIdle {
		return
	}
	res := s.coord.Save(context.Background(), opts)
	if !res.Success {
		s.log.Warn("auto-save failed",
			zap.String("trigger", trigger), zap.String("message", res.Message))
		return
	}
	s.log.Debug("auto-save completed",
		zap.String("trigger", trigger), zap.Int("terminals", res.TerminalCount))
}
