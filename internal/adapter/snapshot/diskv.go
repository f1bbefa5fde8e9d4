// Package snapshot implements the shared snapshot cache on a diskv-backed
// file store. Any consumer on the machine can read the latest record without
// reaching the authoritative event store.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"

	"pouchlog/internal/domain"
)

const recordKey = "live-snapshot"

// Store persists SnapshotRecords as JSON files under a base directory.
// Writes are whole-record overwrites; last writer wins.
type Store struct {
	d *diskv.Diskv
}

// DefaultDir returns the default cache directory: ~/.pouchlog/snapshot
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".pouchlog", "snapshot"), nil
}

// New creates a Store rooted at the given directory.
func New(basePath string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 64 * 1024,
	})}
}

// WriteSnapshot overwrites the cached record.
func (s *Store) WriteSnapshot(rec domain.SnapshotRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.d.Write(recordKey, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot returns the latest record, or nil when none has been written.
func (s *Store) ReadSnapshot() (*domain.SnapshotRecord, error) {
	data, err := s.d.Read(recordKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var rec domain.SnapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &rec, nil
}
