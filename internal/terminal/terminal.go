package terminal

import (
	"os"
	"os/exec"
	"sync"
	"time"
)

// Terminal is one live PTY-backed shell in the workspace.
type Terminal struct {
	id        string
	shell     string
	startedAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File
	buf  *Buffer

	mu             sync.RWMutex
	name           string
	number         int
	cwd            string
	cols           int
	rows           int
	cliAgentType   string
	indicatorColor string
	closed         bool
}

// Buffer is a thread-safe circular buffer for terminal output.
type Buffer struct {
	data []byte
	size int
	head int
	tail int
	mu   sync.RWMutex
}

// NewBuffer creates a circular buffer holding at most size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write appends data, overwriting the oldest bytes when full.
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size
		if b.tail == b.head {
			b.head = (b.head + 1) % b.size
		}
	}
	return len(p), nil
}

// ReadAll drains the buffer.
func (b *Buffer) ReadAll() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == b.tail {
		return []byte{}
	}

	var result []byte
	if b.tail > b.head {
		result = make([]byte, b.tail-b.head)
		copy(result, b.data[b.head:b.tail])
	} else {
		firstPart := b.data[b.head:]
		secondPart := b.data[:b.tail]
		result = make([]byte, len(firstPart)+len(secondPart))
		copy(result, firstPart)
		copy(result[len(firstPart):], secondPart)
	}

	b.head = b.tail
	return result
}

// Len reports the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.tail >= b.head {
		return b.tail - b.head
	}
	return b.size - b.head + b.tail
}
