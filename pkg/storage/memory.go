package storage

import (
	"fmt"
	"sync"
)

// MemoryBackend is a Backend that keeps the page file in a growable byte
// slice instead of an *os.File, for tests that want a Pager without disk
// I/O.
type MemoryBackend struct {
	data []byte
	mu   sync.RWMutex
}

// NewMemory creates a new in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		data: make([]byte, 0),
	}
}

// ReadAt reads data from memory at the specified offset.
func (m *MemoryBackend) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, ErrInvalidOffset
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset >= int64(len(m.data)) {
		return 0, fmt.Errorf("offset %d beyond data size %d", offset, len(m.data))
	}

	n := copy(buf, m.data[offset:])
	return n, nil
}

// WriteAt writes data to memory at the specified offset, growing the
// backing slice if the write lands past its current end.
func (m *MemoryBackend) WriteAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, ErrInvalidOffset
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	endOffset := offset + int64(len(buf))
	if endOffset > int64(len(m.data)) {
		newData := make([]byte, endOffset)
		copy(newData, m.data)
		m.data = newData
	}

	copy(m.data[offset:], buf)
	return len(buf), nil
}

// Sync is a no-op for the memory backend; data is always "synced".
func (m *MemoryBackend) Sync() error {
	return nil
}

// Close clears the memory.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}
