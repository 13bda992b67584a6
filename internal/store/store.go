// Package store persists the workspace session record in a bbolt
// key-value file. One bucket holds one record per workspace id; writes are
// atomic at the transaction level so readers never observe a partial
// record.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	bolt "go.etcd.io/bbolt"

	"github.com/s-hiraoku/termsession/internal/types"
)

var bucketSessions = []byte("sessions")

var (
	// ErrWriteFailed wraps any failure to durably write the record.
	ErrWriteFailed = errors.New("storage write failed")
	// ErrCorruptRecord indicates the stored bytes could not be decoded.
	ErrCorruptRecord = errors.New("corrupt session record")
)

// Store is a workspace-scoped durable slot for a single SessionRecord.
type Store struct {
	db        *bolt.DB
	workspace string
}

// Open opens (creating if needed) the bbolt file at path, scoped to the
// given workspace id.
func Open(path, workspace string) (*Store, error) {
	if workspace == "" {
		return nil, errors.New("store: workspace id is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db, workspace: workspace}, nil
}

// Load reads the workspace's session record. A missing record returns
// (nil, nil); undecodable bytes return ErrCorruptRecord.
func (s *Store) Load() (*types.SessionRecord, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(s.workspace)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	decoded, err := gunzip(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	var rec types.SessionRecord
	if err := json.Unmarshal(decoded, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}

// Save overwrites the workspace's session record. Last write wins.
func (s *Store) Save(rec *types.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrWriteFailed, err)
	}
	compressed, err := gz(data)
	if err != nil {
		return fmt.Errorf("%w: compress: %v", ErrWriteFailed, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(s.workspace), compressed)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Clear removes the workspace's session record. Clearing an absent record
// is not an error.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(s.workspace))
	})
	if err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func gz(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
