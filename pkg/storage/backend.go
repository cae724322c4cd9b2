package storage

import (
	"errors"
)

var (
	ErrInvalidOffset = errors.New("invalid offset")
	ErrBackendClosed = errors.New("backend is closed")
)

// Backend is what a Pager needs underneath it to read and write fixed-size
// pages. tinydb never compacts or resizes its data file in place, so unlike
// a general storage abstraction this has no Size/Truncate: pages are only
// ever written via WriteAt at offsets the Pager computes from a page id.
type Backend interface {
	// ReadAt reads len(buf) bytes from the backend at the given offset.
	ReadAt(buf []byte, offset int64) (int, error)

	// WriteAt writes len(buf) bytes to the backend at the given offset.
	WriteAt(buf []byte, offset int64) (int, error)

	// Sync ensures all written data is persisted to storage.
	Sync() error

	// Close closes the backend.
	Close() error
}
