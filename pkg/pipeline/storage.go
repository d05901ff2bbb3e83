package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/moby/sys/atomicwriter"
)

// Storage is the durable medium behind a State. Read returns an error
// satisfying errors.Is(err, os.ErrNotExist) when nothing has been stored yet.
type Storage interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Location() string
}

// FileStorage keeps the state document in a single file. Writes go through
// a temp file that is synced and renamed over the target, so a crash leaves
// either the old or the new document on disk.
type FileStorage struct {
	path string
	perm os.FileMode
}

// NewFileStorage creates a file-backed storage at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path, perm: 0o644}
}

// Read returns the file content.
func (f *FileStorage) Read() ([]byte, error) {
	return os.ReadFile(f.path)
}

// Write replaces the file content atomically.
func (f *FileStorage) Write(data []byte) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory %q: %w", dir, err)
		}
	}
	return atomicwriter.WriteFile(f.path, data, f.perm)
}

// Location returns the file path.
func (f *FileStorage) Location() string {
	return f.path
}

// MemoryStorage is an in-process Storage for tests and dry runs.
type MemoryStorage struct {
	mu       sync.Mutex
	data     []byte
	exists   bool
	writeErr error
	writes   int
}

// NewMemoryStorage creates an empty memory storage. When data is non-nil the
// storage starts out holding it.
func NewMemoryStorage(data []byte) *MemoryStorage {
	m := &MemoryStorage{}
	if data != nil {
		m.data = append([]byte(nil), data...)
		m.exists = true
	}
	return m
}

// Read returns a copy of the stored bytes.
func (m *MemoryStorage) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

// Write stores a copy of data unless a write failure has been injected.
func (m *MemoryStorage) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	m.exists = true
	m.writes++
	return nil
}

// Location identifies the storage in errors and logs.
func (m *MemoryStorage) Location() string {
	return "memory"
}

// FailWrites makes every subsequent Write return err. Pass nil to recover.
func (m *MemoryStorage) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Set replaces the stored bytes directly, bypassing write failures. Tests use
// it to simulate an external edit of the state document.
func (m *MemoryStorage) Set(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.exists = true
	m.mu.Unlock()
}

// Bytes returns a copy of the stored bytes.
func (m *MemoryStorage) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Writes returns the number of successful writes.
func (m *MemoryStorage) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
