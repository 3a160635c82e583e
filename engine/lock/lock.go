// Package lock serializes writers per bucket.
//
// Every key gets a refcounted in-process mutex. When the table is created
// with a lock directory, an exclusive advisory file lock on
// <dir>/<key>.lock is taken as well so separate processes sharing the
// same tree are serialized too.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Table hands out per-key exclusive locks.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
	dir     string
}

// NewTable creates a lock table. An empty dir disables file locks.
func NewTable(dir string) *Table {
	return &Table{
		entries: make(map[string]*entry),
		dir:     dir,
	}
}

// FileLocks reports whether cross-process locks are taken.
func (t *Table) FileLocks() bool { return t.dir != "" }

// Lock blocks until key is held and returns the release func.
func (t *Table) Lock(key string) (func(), error) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()

	var file *os.File
	if t.dir != "" {
		f, err := t.lockFile(key)
		if err != nil {
			e.mu.Unlock()
			t.release(key, e)
			return nil, err
		}
		file = f
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if file != nil {
				_ = unlock(file)
				_ = file.Close()
			}
			e.mu.Unlock()
			t.release(key, e)
		})
	}, nil
}

// With runs fn while holding key.
func (t *Table) With(key string, fn func() error) error {
	release, err := t.Lock(key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (t *Table) release(key string, e *entry) {
	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

// Held returns the number of keys currently locked or waited on.
func (t *Table) Held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) lockFile(key string) (*os.File, error) {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(t.dir, key+".lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lock(file); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return file, nil
}
