package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/logging"
	"github.com/s-hiraoku/termsession/internal/shared/id"
	"github.com/s-hiraoku/termsession/internal/types"
)

const outputBufferSize = 1024 * 1024 // 1MB per terminal

// Notifier receives topology change events. The session coordinator
// implements it.
type Notifier interface {
	HandleTerminalCreated(terminalID string)
	HandleTerminalRemoved(terminalID string)
}

// Manager owns the workspace's PTY-backed terminals: an ordered set with
// at most one active terminal.
type Manager struct {
	log *logging.Logger

	mu        sync.RWMutex
	terminals map[string]*Terminal
	order     []string
	active    string
	nextNum   int
	notifier  Notifier
}

// NewManager creates an empty workspace manager.
func NewManager(log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		log:       log.WithComponent("terminal"),
		terminals: make(map[string]*Terminal),
	}
}

// SetNotifier attaches the topology event sink. Must be called before the
// first create.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	m.notifier = n
	m.mu.Unlock()
}

// CreateTerminal spawns a shell in the default working directory.
func (m *Manager) CreateTerminal(ctx context.Context) (string, error) {
	return m.CreateTerminalAt(ctx, "")
}

// CreateTerminalAt spawns a shell rooted at cwd. An empty cwd falls back
// to $HOME.
func (m *Manager) CreateTerminalAt(ctx context.Context, cwd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	if cwd == "" {
		cwd = os.Getenv("HOME")
		if cwd == "" {
			cwd = "/tmp"
		}
	}
	if info, err := os.Stat(cwd); err != nil || !info.IsDir() {
		// Saved directories can vanish between sessions.
		m.log.Debug("saved cwd missing, using home", zap.String("cwd", cwd))
		cwd = os.Getenv("HOME")
		if cwd == "" {
			cwd = "/tmp"
		}
	}

	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		return "", fmt.Errorf("failed to start PTY: %w", err)
	}

	m.mu.Lock()
	m.nextNum++
	term := &Terminal{
		id:        string(id.NewTerminalID()),
		shell:     shell,
		startedAt: time.Now(),
		cmd:       cmd,
		ptmx:      ptmx,
		buf:       NewBuffer(outputBufferSize),
		name:      fmt.Sprintf("Terminal %d", m.nextNum),
		number:    m.nextNum,
		cwd:       cwd,
		cols:      80,
		rows:      24,
	}
	m.terminals[term.id] = term
	m.order = append(m.order, term.id)
	if m.active == "" {
		m.active = term.id
	}
	notifier := m.notifier
	m.mu.Unlock()

	go m.readOutput(term)
	go m.monitorProcess(term)

	m.log.Info("terminal created",
		zap.String("terminal_id", term.id), zap.String("cwd", cwd))
	if notifier != nil {
		notifier.HandleTerminalCreated(term.id)
	}
	return term.id, nil
}

// readOutput drains the PTY into the terminal's ring buffer.
func (m *Manager) readOutput(term *Terminal) {
	buf := make([]byte, 4096)
	for {
		n, err := term.ptmx.Read(buf)
		if n > 0 {
			term.buf.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				m.log.Debug("pty read ended",
					zap.String("terminal_id", term.id), zap.Error(err))
			}
			return
		}
	}
}

// monitorProcess waits for the shell to exit and removes the terminal.
func (m *Manager) monitorProcess(term *Terminal) {
	term.cmd.Wait()

	term.mu.Lock()
	alreadyClosed := term.closed
	term.closed = true
	term.mu.Unlock()
	term.ptmx.Close()

	if alreadyClosed {
		return
	}
	m.remove(term.id)
}

func (m *Manager) remove(terminalID string) {
	m.mu.Lock()
	if _, ok := m.terminals[terminalID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.terminals, terminalID)
	for i, oid := range m.order {
		if oid == terminalID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.active == terminalID {
		m.active = ""
		if len(m.order) > 0 {
			m.active = m.order[len(m.order)-1]
		}
	}
	notifier := m.notifier
	m.mu.Unlock()

	m.log.Info("terminal removed", zap.String("terminal_id", terminalID))
	if notifier != nil {
		notifier.HandleTerminalRemoved(terminalID)
	}
}

// CloseTerminal kills a terminal's shell and removes it from the
// workspace.
func (m *Manager) CloseTerminal(terminalID string) error {
	m.mu.RLock()
	term, ok := m.terminals[terminalID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("terminal not found: %s", terminalID)
	}

	term.mu.Lock()
	if term.closed {
		term.mu.Unlock()
		return nil
	}
	term.closed = true
	term.mu.Unlock()

	if term.cmd.Process != nil {
		term.cmd.Process.Kill()
	}
	term.ptmx.Close()
	m.remove(terminalID)
	return nil
}

// Write sends input to a terminal's shell.
func (m *Manager) Write(terminalID string, input []byte) error {
	m.mu.RLock()
	term, ok := m.terminals[terminalID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("terminal not found: %s", terminalID)
	}

	term.mu.RLock()
	closed := term.closed
	term.mu.RUnlock()
	if closed {
		return fmt.Errorf("terminal is closed: %s", terminalID)
	}

	_, err := term.ptmx.Write(input)
	return err
}

// Read drains a terminal's buffered output.
func (m *Manager) Read(terminalID string) ([]byte, error) {
	m.mu.RLock()
	term, ok := m.terminals[terminalID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("terminal not found: %s", terminalID)
	}
	return term.buf.ReadAll(), nil
}

// Resize changes a terminal's dimensions.
func (m *Manager) Resize(terminalID string, cols, rows int) error {
	m.mu.RLock()
	term, ok := m.terminals[terminalID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("terminal not found: %s", terminalID)
	}

	term.mu.Lock()
	defer term.mu.Unlock()
	if term.closed {
		return fmt.Errorf("terminal is closed: %s", terminalID)
	}
	term.cols = cols
	term.rows = rows
	return pty.Setsize(term.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// GetTerminals returns the workspace in display order.
func (m *Manager) GetTerminals() []types.TerminalInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]types.TerminalInfo, 0, len(m.order))
	for _, tid := range m.order {
		term, ok := m.terminals[tid]
		if !ok {
			continue
		}
		term.mu.RLock()
		infos = append(infos, types.TerminalInfo{
			ID:             term.id,
			Name:           term.name,
			Cwd:            term.cwd,
			IsActive:       tid == m.active,
			CliAgentType:   term.cliAgentType,
			IndicatorColor: term.indicatorColor,
		})
		term.mu.RUnlock()
	}
	return infos
}

// GetActiveTerminalID returns the focused terminal's id, or "".
func (m *Manager) GetActiveTerminalID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// RenameTerminal sets a terminal's display name.
func (m *Manager) RenameTerminal(terminalID, name string) error {
	m.mu.RLock()
	term, ok := m.terminals[terminalID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("terminal not found: %s", terminalID)
	}
	term.mu.Lock()
	term.name = name
	term.mu.Unlock()
	return nil
}

// UpdateTerminalHeader applies header metadata such as the CLI agent
// indicator color.
func (m *Manager) UpdateTerminalHeader(terminalID string, update types.HeaderUpdate) error {
	m.mu.RLock()
	term, ok := m.terminals[terminalID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("terminal not found: %s", terminalID)
	}
	term.mu.Lock()
	if update.IndicatorColor != "" {
		term.indicatorColor = update.IndicatorColor
	}
	if update.CliAgentType != "" {
		term.cliAgentType = update.CliAgentType
	}
	term.mu.Unlock()
	return nil
}

// SetActiveTerminal moves focus to the given terminal.
func (m *Manager) SetActiveTerminal(terminalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.terminals[terminalID]; !ok {
		return fmt.Errorf("terminal not found: %s", terminalID)
	}
	m.active = terminalID
	return nil
}

// ReorderTerminals reorders the workspace to match ids. Unknown ids are
// ignored, unlisted terminals keep their relative order at the end.
func (m *Manager) ReorderTerminals(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	ordered := make([]string, 0, len(m.order))
	for _, tid := range ids {
		if _, ok := m.terminals[tid]; ok && !seen[tid] {
			ordered = append(ordered, tid)
			seen[tid] = true
		}
	}
	for _, tid := range m.order {
		if !seen[tid] {
			ordered = append(ordered, tid)
		}
	}
	m.order = ordered

	// Renumber to match the new order.
	for i, tid := range m.order {
		term := m.terminals[tid]
		term.mu.Lock()
		term.number = i + 1
		term.mu.Unlock()
	}
	return nil
}

// Shutdown kills every terminal. Used on process exit after the final
// save completes.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	m.mu.RUnlock()
	for _, tid := range ids {
		if err := m.CloseTerminal(tid); err != nil {
			m.log.Debug("close failed during shutdown",
				zap.String("terminal_id", tid), zap.Error(err))
		}
	}
}
