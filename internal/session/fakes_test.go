package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/s-hiraoku/termsession/internal/config"
	"github.com/s-hiraoku/termsession/internal/types"
)

// testConfig keeps every wait short enough for tests.
func testConfig() config.SessionConfig {
	return config.SessionConfig{
		Enabled:           true,
		ScrollbackLines:   1000,
		StorageLimitMB:    20,
		ExpiryDays:        7,
		RevivePolicy:      "never",
		ExtractionTimeout: 30 * time.Millisecond,
		ReadinessTimeout:  30 * time.Millisecond,
		RestoreGrace:      50 * time.Millisecond,
	}
}

func newTestCoordinator(cfg config.SessionConfig, store Store, mgr Manager, surface Surface) *Coordinator {
	return NewCoordinator(Options{
		Config:    cfg,
		Store:     store,
		Terminals: mgr,
		Surface:   surface,
	})
}

// fakeManager is an in-memory terminal manager for orchestrator tests.
type fakeManager struct {
	mu        sync.Mutex
	terminals []types.TerminalInfo
	active    string
	nextNum    int
	createErr  error
	createHook func() error
	reorders   [][]string
}

func newFakeManager(infos ...types.TerminalInfo) *fakeManager {
	m := &fakeManager{terminals: infos}
	for _, info := range infos {
		if info.IsActive {
			m.active = info.ID
		}
	}
	return m
}

func (m *fakeManager) GetTerminals() []types.TerminalInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TerminalInfo, len(m.terminals))
	copy(out, m.terminals)
	return out
}

func (m *fakeManager) GetActiveTerminalID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *fakeManager) CreateTerminal(ctx context.Context) (string, error) {
	return m.CreateTerminalAt(ctx, "")
}

func (m *fakeManager) CreateTerminalAt(_ context.Context, cwd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	if m.createHook != nil {
		if err := m.createHook(); err != nil {
			return "", err
		}
	}
	m.nextNum++
	id := fmt.Sprintf("new_%d", m.nextNum)
	m.terminals = append(m.terminals, types.TerminalInfo{ID: id, Cwd: cwd})
	return id, nil
}

func (m *fakeManager) RenameTerminal(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.terminals {
		if m.terminals[i].ID == id {
			m.terminals[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("no terminal %s", id)
}

func (m *fakeManager) UpdateTerminalHeader(id string, update types.HeaderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.terminals {
		if m.terminals[i].ID == id {
			if update.IndicatorColor != "" {
				m.terminals[i].IndicatorColor = update.IndicatorColor
			}
			if update.CliAgentType != "" {
				m.terminals[i].CliAgentType = update.CliAgentType
			}
			return nil
		}
	}
	return fmt.Errorf("no terminal %s", id)
}

func (m *fakeManager) SetActiveTerminal(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = id
	return nil
}

func (m *fakeManager) ReorderTerminals(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reorders = append(m.reorders, append([]string(nil), ids...))

	byID := make(map[string]types.TerminalInfo, len(m.terminals))
	for _, info := range m.terminals {
		byID[info.ID] = info
	}
	ordered := make([]types.TerminalInfo, 0, len(m.terminals))
	for _, id := range ids {
		if info, ok := byID[id]; ok {
			ordered = append(ordered, info)
			delete(byID, id)
		}
	}
	for _, info := range m.terminals {
		if _, ok := byID[info.ID]; ok {
			ordered = append(ordered, info)
		}
	}
	m.terminals = ordered
	return nil
}

// fakeSurface records posted messages and can synthesize responses.
type fakeSurface struct {
	mu      sync.Mutex
	posted  []types.OutboundMessage
	postErr error
	onPost  func(types.OutboundMessage)
}

func (s *fakeSurface) Post(_ context.Context, msg types.OutboundMessage) error {
	s.mu.Lock()
	s.posted = append(s.posted, msg)
	err := s.postErr
	onPost := s.onPost
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if onPost != nil {
		onPost(msg)
	}
	return nil
}

func (s *fakeSurface) messages() []types.OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.OutboundMessage, len(s.posted))
	copy(out, s.posted)
	return out
}

func (s *fakeSurface) messagesOf(command string) []types.OutboundMessage {
	var out []types.OutboundMessage
	for _, msg := range s.messages() {
		if msg.Command == command {
			out = append(out, msg)
		}
	}
	return out
}

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	rec     *types.SessionRecord
	saveErr error
	loadErr error
	saves   int
	clears  int
}

func (s *memStore) Load() (*types.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.rec, nil
}

func (s *memStore) Save(rec *types.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.rec = rec
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.rec = nil
	return nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memStore) record() *types.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}
