package terminal

import (
	"bytes"
	"testing"
)

func TestBufferWriteRead(t *testing.T) {
	buf := NewBuffer(64)

	buf.Write([]byte("hello "))
	buf.Write([]byte("world"))

	got := buf.ReadAll()
	if string(got) != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}

	// Drained after read.
	if got := buf.ReadAll(); len(got) != 0 {
		t.Errorf("expected empty buffer after drain, got %q", got)
	}
}

func TestBufferOverwritesOldest(t *testing.T) {
	buf := NewBuffer(8)

	buf.Write([]byte("abcdefghij")) // 10 bytes into an 8-byte ring

	got := buf.ReadAll()
	if len(got) >= 8 {
		t.Fatalf("ring must hold fewer bytes than its size, got %d", len(got))
	}
	if !bytes.HasSuffix([]byte("abcdefghij"), got) {
		t.Errorf("ring must keep the newest bytes, got %q", got)
	}
}

func TestBufferLen(t *testing.T) {
	buf := NewBuffer(16)
	if buf.Len() != 0 {
		t.Errorf("empty buffer Len = %d", buf.Len())
	}
	buf.Write([]byte("abc"))
	if buf.Len() != 3 {
		t.Errorf("Len = %d, want 3", buf.Len())
	}
	buf.ReadAll()
	if buf.Len() != 0 {
		t.Errorf("Len after drain = %d", buf.Len())
	}
}

func TestBufferConcurrentWrites(t *testing.T) {
	buf := NewBuffer(1024)
	done := make(chan struct{})

	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				buf.Write([]byte("x"))
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	if got := len(buf.ReadAll()); got != 400 {
		t.Errorf("got %d bytes, want 400", got)
	}
}
