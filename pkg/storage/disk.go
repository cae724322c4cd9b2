package storage

import (
	"fmt"
	"os"
	"sync"
)

// DiskBackend is the on-disk Backend for tinydb's page file: plain
// ReadAt/WriteAt/Sync against an *os.File, with no page cache of its own —
// the Pager above it is the only thing that knows what a page is.
type DiskBackend struct {
	file     *os.File
	filePath string
	mu       sync.RWMutex
}

// OpenDisk opens or creates the page file at path.
func OpenDisk(path string) (*DiskBackend, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return &DiskBackend{
		file:     file,
		filePath: path,
	}, nil
}

// ReadAt reads data from the file at the specified offset.
func (d *DiskBackend) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, ErrInvalidOffset
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.file == nil {
		return 0, ErrBackendClosed
	}

	return d.file.ReadAt(buf, offset)
}

// WriteAt writes data to the file at the specified offset.
func (d *DiskBackend) WriteAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, ErrInvalidOffset
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return 0, ErrBackendClosed
	}

	return d.file.WriteAt(buf, offset)
}

// Sync ensures all data is written to disk.
func (d *DiskBackend) Sync() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.file == nil {
		return ErrBackendClosed
	}

	return d.file.Sync()
}

// Close closes the file.
func (d *DiskBackend) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}

	err := d.file.Close()
	d.file = nil
	return err
}
